// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Qchains/gtelegram/internal/collector"
	"github.com/Qchains/gtelegram/internal/engine"
	"github.com/Qchains/gtelegram/internal/memory"
	"github.com/Qchains/gtelegram/internal/snapshot"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// Runtime is the part of the engine the tools drive
type Runtime interface {
	Status() engine.Status
	Memory(q engine.MemoryQuery) engine.MemoryPage
	Line(id uint64) (memory.MemoryLine, error)
	Introspect(ctx context.Context, query string) (*engine.IntrospectionResult, error)
	PromiseChain(ctx context.Context, data map[string]interface{}, chainType string) (*engine.PromiseResult, error)
	CommitSnapshot(ctx context.Context) (snapshot.Meta, error)
	SnapshotHistory(ctx context.Context, limit int) ([]snapshot.Meta, error)
	Collector() engine.CollectorStatus
	ReconfigureCollector(cfg collector.Config) (engine.CollectorStatus, error)
}

// ToolContext holds shared dependencies for all tools
type ToolContext struct {
	Runtime Runtime
	Logger  *zap.Logger
}

// NewToolContext creates a new tool context
func NewToolContext(rt Runtime, logger *zap.Logger) *ToolContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolContext{Runtime: rt, Logger: logger}
}

// jsonResult renders v as indented JSON text
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports a runtime error to the model; the call itself succeeds
func (tc *ToolContext) errorResult(tool string, err error) (*mcp.CallToolResult, error) {
	tc.Logger.Info("tool call failed", zap.String("tool", tool), zap.Error(err))
	return mcp.NewToolResultError(err.Error()), nil
}
