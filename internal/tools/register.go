// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"github.com/Qchains/gtelegram/internal/collector"
	"github.com/Qchains/gtelegram/internal/engine"
	"github.com/mark3labs/mcp-go/server"
)

// Register adds every Pandora tool to s
func Register(s *server.MCPServer, tc *ToolContext) {
	s.AddTool(NewStatusTool(), StatusHandler(tc))
	s.AddTool(NewMemoryTool(), MemoryHandler(tc))
	s.AddTool(NewQueryTool(), QueryHandler(tc))
	s.AddTool(NewPromiseTool(), PromiseHandler(tc))
	s.AddTool(NewSnapshotTool(), SnapshotHandler(tc))
	s.AddTool(NewCollectorTool(), CollectorHandler(tc))
}

func currentConfig(st engine.CollectorStatus) collector.Config {
	return collector.Config{
		BufferSize:   st.BufferSize,
		StrictMode:   st.StrictMode,
		CommentStrip: st.CommentStrip,
		ReverseOrder: st.ReverseOrder,
	}
}
