// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/Qchains/gtelegram/internal/config"
	"github.com/Qchains/gtelegram/internal/engine"
	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/Qchains/gtelegram/internal/snapshot"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTools(t *testing.T) (*ToolContext, *engine.Engine) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Database.Enabled = false
	cfg.Snapshot.Dir = filepath.Join(dir, "snapshots")
	cfg.Snapshot.Git = false
	cfg.Data.MemoryReel = ""
	cfg.Data.ThisThen = ""

	e, err := engine.New(cfg, engine.Options{})
	require.NoError(t, err)
	return NewToolContext(e, nil), e
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	result, err := h(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func getResultText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if textContent, ok := result.Content[0].(mcp.TextContent); ok {
		return textContent.Text
	}
	return ""
}

func decode(t *testing.T, result *mcp.CallToolResult, v interface{}) {
	t.Helper()
	require.False(t, result.IsError, getResultText(result))
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), v))
}

func TestQueryAndStatus(t *testing.T) {
	tc, _ := setupTools(t)

	var res engine.IntrospectionResult
	decode(t, call(t, QueryHandler(tc), map[string]interface{}{"query": "who am I"}), &res)
	assert.Equal(t, "who am I", res.Query)
	assert.Equal(t, uint64(1), res.MemoryLineID)

	var st engine.Status
	decode(t, call(t, StatusHandler(tc), nil), &st)
	assert.Equal(t, 1, st.MemoryLineCount)
	assert.Equal(t, engine.StateInactive, st.RuntimeState)

	decode(t, call(t, QueryHandler(tc), map[string]interface{}{"action": "status"}), &st)
	assert.Equal(t, 1, st.MemoryLineCount)

	result := call(t, QueryHandler(tc), map[string]interface{}{"action": "dance"})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "unknown action")
}

func TestPromise(t *testing.T) {
	tc, _ := setupTools(t)

	var res engine.PromiseResult
	decode(t, call(t, PromiseHandler(tc), map[string]interface{}{
		"data":       map[string]interface{}{"state": "joyful"},
		"chain_type": "bind",
	}), &res)
	assert.Equal(t, "joyful", res.Line.State)
	assert.Equal(t, "bind", res.Final["chain_type"])
	assert.Contains(t, res.Line.SemanticTags, memory.TagEmotional)

	result := call(t, PromiseHandler(tc), map[string]interface{}{"data": "not an object"})
	assert.True(t, result.IsError)
}

func TestMemory(t *testing.T) {
	tc, e := setupTools(t)
	for _, st := range []string{"a", "b", "c"} {
		_, err := e.Ingest(context.Background(), memory.RawItem{Text: st}, memory.ModeIntrospect)
		require.NoError(t, err)
	}

	var page engine.MemoryPage
	decode(t, call(t, MemoryHandler(tc), map[string]interface{}{"limit": float64(2)}), &page)
	assert.Equal(t, 3, page.TotalMemoryLines)
	require.Len(t, page.MemoryLines, 2)
	assert.Equal(t, "c", page.MemoryLines[0].State)
	assert.Equal(t, "b", page.MemoryLines[1].State)

	decode(t, call(t, MemoryHandler(tc), map[string]interface{}{"limit": float64(2), "offset": float64(0)}), &page)
	assert.Equal(t, "c", page.MemoryLines[0].State)

	decode(t, call(t, MemoryHandler(tc), map[string]interface{}{"limit": float64(2), "reverse": false}), &page)
	require.Len(t, page.MemoryLines, 2)
	assert.Equal(t, "b", page.MemoryLines[0].State)
	assert.Equal(t, "c", page.MemoryLines[1].State)

	decode(t, call(t, MemoryHandler(tc), map[string]interface{}{"limit": float64(2), "offset": float64(0), "reverse": false}), &page)
	assert.Equal(t, "a", page.MemoryLines[0].State)

	var line memory.MemoryLine
	decode(t, call(t, MemoryHandler(tc), map[string]interface{}{"id": float64(3)}), &line)
	assert.Equal(t, "c", line.State)

	result := call(t, MemoryHandler(tc), map[string]interface{}{"id": float64(42)})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "NOT_FOUND")
}

func TestSnapshot(t *testing.T) {
	tc, _ := setupTools(t)

	var meta snapshot.Meta
	decode(t, call(t, SnapshotHandler(tc), nil), &meta)
	assert.Equal(t, snapshot.TriggerManual, meta.Trigger)

	var history []snapshot.Meta
	decode(t, call(t, SnapshotHandler(tc), map[string]interface{}{"action": "history"}), &history)
	require.Len(t, history, 1)
	assert.Equal(t, meta.SnapshotID, history[0].SnapshotID)
}

func TestCollector(t *testing.T) {
	tc, _ := setupTools(t)

	var st engine.CollectorStatus
	decode(t, call(t, CollectorHandler(tc), nil), &st)
	assert.Equal(t, 100, st.BufferSize)
	assert.True(t, st.ReverseOrder)

	decode(t, call(t, CollectorHandler(tc), map[string]interface{}{"buffer_size": float64(5), "strict_mode": true}), &st)
	assert.Equal(t, 5, st.BufferSize)
	assert.True(t, st.StrictMode)
	assert.True(t, st.CommentStrip, "unset settings are kept")

	result := call(t, CollectorHandler(tc), map[string]interface{}{"buffer_size": float64(0)})
	assert.True(t, result.IsError)
	assert.Contains(t, getResultText(result), "VALIDATION_ERROR")
}
