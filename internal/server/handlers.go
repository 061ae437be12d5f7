// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Qchains/gtelegram/internal/collector"
	"github.com/Qchains/gtelegram/internal/engine"
	"github.com/Qchains/gtelegram/internal/errs"
	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/go-chi/chi/v5"
)

const defaultSnapshotHistory = 20

// QueryRequest is the body of POST /api/pandora/query
type QueryRequest struct {
	Query  string `json:"query"`
	Action string `json:"action"`
}

// PromiseRequest is the body of POST /api/pandora/promise
type PromiseRequest struct {
	Data      map[string]interface{} `json:"data"`
	ChainType string                 `json:"chain_type"`
}

// IngestRequest is the body of POST /api/pandora/ingest
type IngestRequest struct {
	Text    string                 `json:"text"`
	Payload map[string]interface{} `json:"payload"`
	Mode    memory.Mode            `json:"mode"`
}

// NoteRequest is the body of POST /api/pandora/memory/{id}/notes
type NoteRequest struct {
	Note string `json:"note"`
}

func (h *HTTPServer) handleBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": engine.Banner})
}

func (h *HTTPServer) handlePortal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runtime.Portal())
}

func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runtime.Status())
}

func (h *HTTPServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.runtime.Start(); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "started",
		"message":      "Pandora 5o runtime is now active",
		"breath_cycle": "engaged",
		"sync_root":    "Pandora Q",
	})
}

func (h *HTTPServer) handleStop(w http.ResponseWriter, r *http.Request) {
	meta, err := h.runtime.Stop(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "stopped",
		"message":        "Pandora 5o runtime has been stopped",
		"final_snapshot": meta,
	})
}

func (h *HTTPServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	switch req.Action {
	case engine.ActionIntrospect, "":
		res, err := h.runtime.Introspect(r.Context(), req.Query)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case engine.ActionStatus:
		writeJSON(w, http.StatusOK, h.runtime.Status())
	default:
		h.writeError(w, r, errs.Validation(fmt.Sprintf("Unknown action: %s", req.Action)).WithField("action", "must be introspect or status"))
	}
}

func (h *HTTPServer) handlePromise(w http.ResponseWriter, r *http.Request) {
	var req PromiseRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.runtime.PromiseChain(r.Context(), req.Data, req.ChainType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Mode == "" {
		req.Mode = memory.ModeIntrospect
	}

	line, err := h.runtime.Ingest(r.Context(), memory.RawItem{Text: req.Text, Payload: req.Payload}, req.Mode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (h *HTTPServer) handleMemory(w http.ResponseWriter, r *http.Request) {
	q := engine.MemoryQuery{}
	values := r.URL.Query()

	limit, err := intParam(values.Get("limit"), "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q.Limit = limit

	if raw := values.Get("offset"); raw != "" {
		if q.Offset, err = intParam(raw, "offset"); err != nil {
			h.writeError(w, r, err)
			return
		}
		q.HasOffset = true
	}
	if raw := values.Get("reverse"); raw != "" {
		reverse, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, errs.Validation("invalid query parameter").WithField("reverse", "must be a boolean"))
			return
		}
		q.Reverse = &reverse
	}

	writeJSON(w, http.StatusOK, h.runtime.Memory(q))
}

func (h *HTTPServer) handleMemoryLine(w http.ResponseWriter, r *http.Request) {
	id, err := lineID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	line, err := h.runtime.Line(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *HTTPServer) handleAddNote(w http.ResponseWriter, r *http.Request) {
	id, err := lineID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req NoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	line, err := h.runtime.AddNote(id, req.Note)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *HTTPServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	meta, err := h.runtime.CommitSnapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "committed",
		"message":  "Memory snapshot committed successfully",
		"snapshot": meta,
	})
}

func (h *HTTPServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if limit == 0 {
		limit = defaultSnapshotHistory
	}

	history, err := h.runtime.SnapshotHistory(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(history),
		"snapshots": history,
	})
}

func (h *HTTPServer) handleCollector(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runtime.Collector())
}

func (h *HTTPServer) handleCollectorItems(w http.ResponseWriter, r *http.Request) {
	depth, err := intParam(r.URL.Query().Get("depth"), "depth")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := h.runtime.CollectorItems(depth)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(items),
		"items": items,
	})
}

func (h *HTTPServer) handleReconfigure(w http.ResponseWriter, r *http.Request) {
	// unset fields keep their current values
	cfg := collector.Config{}
	current := h.runtime.Collector()
	cfg.BufferSize = current.BufferSize
	cfg.StrictMode = current.StrictMode
	cfg.CommentStrip = current.CommentStrip
	cfg.ReverseOrder = current.ReverseOrder

	if err := decodeBody(w, r, &cfg); err != nil {
		h.writeError(w, r, err)
		return
	}

	status, err := h.runtime.ReconfigureCollector(cfg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runtime.ConfigInfo())
}

// intParam parses an optional non-negative integer query parameter
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.Validation("invalid query parameter").WithField(name, "must be a non-negative integer")
	}
	return n, nil
}

func lineID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Validation("invalid memory line id").WithField("id", "must be a positive integer")
	}
	return id, nil
}
