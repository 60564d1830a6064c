package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/agent"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/registry"
)

// New 将注册表中的每项能力注册为 MCP 工具
func New(reg *registry.Registry, version string) *server.MCPServer {
	s := server.NewMCPServer(
		agent.Name,
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(agent.DefaultInstruction),
	)
	for _, c := range reg.Specs() {
		s.AddTool(toolFor(c), handlerFor(reg, c.Name))
	}
	return s
}

// Serve 通过 stdio 提供服务，直到输入关闭
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func toolFor(c registry.Capability) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(c.Description)}
	for _, p := range c.Params {
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		switch p.Type {
		case registry.TypeObject:
			opts = append(opts, mcp.WithObject(p.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, propOpts...))
		}
	}
	return mcp.NewTool(c.Name, opts...)
}

func handlerFor(reg *registry.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := reg.Invoke(ctx, name, request.GetArguments())
		if err != nil {
			var f *model.Failure
			if errors.As(err, &f) {
				return mcp.NewToolResultError(f.Error()), nil
			}
			logger.Log.WithField("tool", name).Errorf("MCP 工具调用失败: %v", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
