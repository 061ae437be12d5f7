// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"github.com/Qchains/gtelegram/internal/tools"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is reported to MCP clients
const Version = "1.0.0"

// MCPServer wraps the mcp-go server with the Pandora tools
type MCPServer struct {
	mcpServer *server.MCPServer
	toolCtx   *tools.ToolContext
}

// NewMCPServer creates a new MCP server instance with every tool registered
func NewMCPServer(rt tools.Runtime, logger *zap.Logger) *MCPServer {
	mcpServer := server.NewMCPServer(
		"Pandora",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	toolCtx := tools.NewToolContext(rt, logger)
	tools.Register(mcpServer, toolCtx)

	return &MCPServer{
		mcpServer: mcpServer,
		toolCtx:   toolCtx,
	}
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
