// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesOnKind(t *testing.T) {
	err := Validation("bad payload").WithField("state", "required")
	wrapped := fmt.Errorf("ingest: %w", err)

	assert.True(t, errors.Is(wrapped, ErrValidation))
	assert.False(t, errors.Is(wrapped, ErrStorage))
	assert.Equal(t, KindValidation, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	err := Validation("bad payload").
		WithField("state", "required").
		WithField("identity", "must be a string")

	assert.Equal(t, "[VALIDATION_ERROR] bad payload (identity: must be a string; state: required)", err.Error())

	cause := errors.New("disk full")
	storage := Storage("write snapshot", cause)
	assert.Equal(t, "[STORAGE_FAILURE] write snapshot: disk full", storage.Error())
	assert.ErrorIs(t, storage, cause)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("x"), http.StatusBadRequest},
		{NotFound("line %d", 4), http.StatusNotFound},
		{Unavailable("stalled"), http.StatusServiceUnavailable},
		{Storage("x", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
