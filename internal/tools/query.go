// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/Qchains/gtelegram/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

// NewQueryTool creates the pandora_query tool definition
func NewQueryTool() mcp.Tool {
	return mcp.NewTool("pandora_query",
		mcp.WithDescription("Run an introspective traversal. The query is recorded as a new memory line and the most recent collector items are returned. Use action 'status' to get the runtime summary instead."),
		mcp.WithString("query",
			mcp.Description("Free text to introspect on"),
		),
		mcp.WithString("action",
			mcp.Description("introspect (default) or status"),
			mcp.Enum(engine.ActionIntrospect, engine.ActionStatus),
		),
	)
}

// QueryHandler handles the pandora_query tool
func QueryHandler(tc *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		action := request.GetString("action", engine.ActionIntrospect)

		switch action {
		case engine.ActionIntrospect:
			res, err := tc.Runtime.Introspect(ctx, request.GetString("query", ""))
			if err != nil {
				return tc.errorResult("pandora_query", err)
			}
			return jsonResult(res)
		case engine.ActionStatus:
			return jsonResult(tc.Runtime.Status())
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
		}
	}
}
