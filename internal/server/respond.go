// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Qchains/gtelegram/internal/errs"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     bool              `json:"error"`
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its status code and error body
func (h *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)
	resp := ErrorResponse{
		Error:     true,
		Type:      string(errs.KindOf(err)),
		Message:   err.Error(),
		RequestID: GetRequestID(r.Context()),
	}

	var e *errs.Error
	if errors.As(err, &e) {
		resp.Message = e.Message
		resp.Fields = e.Fields
		if e.Cause != nil {
			resp.Message += ": " + e.Cause.Error()
		}
	}
	if resp.Type == "" {
		resp.Type = "INTERNAL_ERROR"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", resp.RequestID),
			zap.Int("status", status),
			zap.Error(err))
	}

	writeJSON(w, status, resp)
}

// decodeBody reads a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errs.Validation("request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errs.Validation("invalid JSON body").WithField("body", err.Error())
	}
	return nil
}

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20
