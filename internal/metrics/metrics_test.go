// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveIngest("introspect", "accepted")
	m.ObserveIngest("introspect", "accepted")
	m.ObserveIngest("promise_chain", "rejected")
	m.SetStoreState(7, 3)
	m.ObserveSnapshot("manual", "ok", 10*time.Millisecond)
	m.IncCycleFailure()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Ingested.WithLabelValues("introspect", "accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Ingested.WithLabelValues("promise_chain", "rejected")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.MemoryLines))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.BreathCycle))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Snapshots.WithLabelValues("manual", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CycleFailures))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveIngest("introspect", "accepted")
		m.ObserveSnapshot("cycle", "failed", time.Second)
		m.SetStoreState(1, 1)
		m.SetBufferItems(1)
		m.IncCycleFailure()
		m.IncMirrorFailure()
		m.ObserveHTTP("GET", "/", 200)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SetBufferItems(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pandora_collector_buffer_items 4")
}
