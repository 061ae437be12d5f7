// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/Qchains/gtelegram/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// NewMemoryTool creates the pandora_memory tool definition
func NewMemoryTool() mcp.Tool {
	return mcp.NewTool("pandora_memory",
		mcp.WithDescription("Read memory lines. Without arguments returns the newest 50 lines. Pass 'id' to fetch a single line, or 'offset' to page through the store from the oldest line."),
		mcp.WithNumber("id",
			mcp.Description("Fetch one memory line by id"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max lines to return. Default: 50"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Start position for paging. When omitted the newest lines are returned"),
		),
		mcp.WithBoolean("reverse",
			mcp.Description("Newest line first. Default: the collector's reverse_order setting"),
		),
	)
}

// MemoryHandler handles the pandora_memory tool
func MemoryHandler(tc *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if id := request.GetFloat("id", 0); id > 0 {
			line, err := tc.Runtime.Line(uint64(id))
			if err != nil {
				return tc.errorResult("pandora_memory", err)
			}
			return jsonResult(line)
		}

		q := engine.MemoryQuery{
			Limit: int(request.GetFloat("limit", 50)),
		}
		args := request.GetArguments()
		if _, ok := args["reverse"]; ok {
			reverse := request.GetBool("reverse", false)
			q.Reverse = &reverse
		}
		if _, ok := args["offset"]; ok {
			q.Offset = int(request.GetFloat("offset", 0))
			q.HasOffset = true
		}
		return jsonResult(tc.Runtime.Memory(q))
	}
}
