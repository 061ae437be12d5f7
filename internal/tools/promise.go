// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewPromiseTool creates the pandora_promise tool definition
func NewPromiseTool() mcp.Tool {
	return mcp.NewTool("pandora_promise",
		mcp.WithDescription("Apply one promise chain step to a structured payload. The payload goes through the collector, becomes a memory line and the then/this/final chain is returned."),
		mcp.WithObject("data",
			mcp.Required(),
			mcp.Description("Structured payload. Recognized keys: stage, identity, state, memory (list of strings)"),
		),
		mcp.WithString("chain_type",
			mcp.Description("Label recorded in the final step. Default: then_this"),
		),
	)
}

// PromiseHandler handles the pandora_promise tool
func PromiseHandler(tc *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, ok := request.GetArguments()["data"].(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("'data' must be an object"), nil
		}

		res, err := tc.Runtime.PromiseChain(ctx, data, request.GetString("chain_type", ""))
		if err != nil {
			return tc.errorResult("pandora_promise", err)
		}
		return jsonResult(res)
	}
}
