// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewCollectorTool creates the pandora_collector tool definition
func NewCollectorTool() mcp.Tool {
	return mcp.NewTool("pandora_collector",
		mcp.WithDescription("Inspect the collector buffer. Passing any of the settings reconfigures it; unset settings keep their current value."),
		mcp.WithNumber("buffer_size",
			mcp.Description("How many raw items the buffer keeps"),
		),
		mcp.WithBoolean("strict_mode",
			mcp.Description("Reject malformed items instead of coercing them"),
		),
		mcp.WithBoolean("comment_strip",
			mcp.Description("Strip // comments from textual fields"),
		),
		mcp.WithBoolean("reverse_order",
			mcp.Description("List recent items newest first"),
		),
	)
}

// CollectorHandler handles the pandora_collector tool
func CollectorHandler(tc *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		changed := false
		for _, key := range []string{"buffer_size", "strict_mode", "comment_strip", "reverse_order"} {
			if _, ok := args[key]; ok {
				changed = true
			}
		}
		if !changed {
			return jsonResult(tc.Runtime.Collector())
		}

		cfg := tc.Runtime.Collector()
		next := currentConfig(cfg)
		next.BufferSize = int(request.GetFloat("buffer_size", float64(next.BufferSize)))
		next.StrictMode = request.GetBool("strict_mode", next.StrictMode)
		next.CommentStrip = request.GetBool("comment_strip", next.CommentStrip)
		next.ReverseOrder = request.GetBool("reverse_order", next.ReverseOrder)

		status, err := tc.Runtime.ReconfigureCollector(next)
		if err != nil {
			return tc.errorResult("pandora_collector", err)
		}
		return jsonResult(status)
	}
}
