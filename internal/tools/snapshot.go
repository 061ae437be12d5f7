// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewSnapshotTool creates the pandora_snapshot tool definition
func NewSnapshotTool() mcp.Tool {
	return mcp.NewTool("pandora_snapshot",
		mcp.WithDescription("Commit a durable snapshot of every retained memory line, or list previous snapshots."),
		mcp.WithString("action",
			mcp.Description("commit (default) or history"),
			mcp.Enum("commit", "history"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max snapshots listed by history. Default: 20"),
		),
	)
}

// SnapshotHandler handles the pandora_snapshot tool
func SnapshotHandler(tc *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		switch action := request.GetString("action", "commit"); action {
		case "commit":
			meta, err := tc.Runtime.CommitSnapshot(ctx)
			if err != nil {
				return tc.errorResult("pandora_snapshot", err)
			}
			return jsonResult(meta)
		case "history":
			history, err := tc.Runtime.SnapshotHistory(ctx, int(request.GetFloat("limit", 20)))
			if err != nil {
				return tc.errorResult("pandora_snapshot", err)
			}
			return jsonResult(history)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
		}
	}
}
