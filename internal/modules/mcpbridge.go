package modules

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/drost/internal/providers"
)

// MCPBridgeModule exposes the gateway's tool registry as an MCP server,
// so MCP-speaking clients can discover and call the same tools the
// Provider Router drives internally.
type MCPBridgeModule struct {
	Tools []providers.ToolDefinition
	Call  func(ctx context.Context, name string, input map[string]interface{}) (interface{}, error)

	mcpServer *server.MCPServer
}

func (b *MCPBridgeModule) Name() string { return "mcp-bridge" }

func (b *MCPBridgeModule) Preflight(ctx context.Context) error {
	b.mcpServer = server.NewMCPServer("drost-gateway", "1.0.0", server.WithToolCapabilities(true))

	for _, tool := range b.Tools {
		t := tool
		mcpTool := mcp.NewTool(t.Function.Name, mcp.WithDescription(t.Function.Description))
		b.mcpServer.AddTool(mcpTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if b.Call == nil {
				return nil, fmt.Errorf("mcp bridge: no call handler configured")
			}
			result, err := b.Call(ctx, t.Function.Name, req.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("%v", result)), nil
		})
	}
	return nil
}

// Server returns the underlying MCP server for transport binding.
func (b *MCPBridgeModule) Server() *server.MCPServer {
	return b.mcpServer
}
