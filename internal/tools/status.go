// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewStatusTool creates the pandora_status tool definition
func NewStatusTool() mcp.Tool {
	return mcp.NewTool("pandora_status",
		mcp.WithDescription("Summarize the Pandora runtime: whether the breath cycle is active, the current breath cycle, how many memory lines are retained, context window usage, the semantic tag distribution and the last checkpoint."),
	)
}

// StatusHandler handles the pandora_status tool
func StatusHandler(tc *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(tc.Runtime.Status())
	}
}
