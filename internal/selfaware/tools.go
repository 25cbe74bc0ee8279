package selfaware

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	mcputils "github.com/mvp-joe/workbench-context/internal/mcp-utils"
	"github.com/mvp-joe/workbench-context/internal/summary"
)

// ContextSource supplies the currently published context items.
// *summary.Updater satisfies it.
type ContextSource interface {
	Items() []summary.Item
}

// AddSelfAwarenessTool registers the self_awareness tool with an MCP server.
// It dispatches exactly like the HTTP boundary.
func AddSelfAwarenessTool(s *server.MCPServer, svc Service) {
	tool := mcp.NewTool(
		"self_awareness",
		mcp.WithDescription("Query or drive the workbench self-awareness service. Actions: 'get-status' reports the workspace state, 'open-source-workspace' opens the project root, 'implement-capability' queues a capability request, 'analyze-source' builds context for the workspace or one file."),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Enum(ActionGetStatus, ActionOpenSourceWorkspace, ActionImplementCapability, ActionAnalyzeSource),
			mcp.Description("Action to perform")),
		mcp.WithString("capability",
			mcp.Description("Capability name (required for 'implement-capability')")),
		mcp.WithString("path",
			mcp.Description("Workspace-relative file to focus on (optional, 'analyze-source' only)")),
	)

	s.AddTool(tool, createSelfAwarenessHandler(svc))
}

func createSelfAwarenessHandler(svc Service) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		resp, err := Dispatch(ctx, svc, argsMap)
		if err != nil {
			return mcp.NewToolResultError(ErrorMessage(err)), nil
		}

		jsonData, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		if !resp.Success {
			return mcp.NewToolResultError(string(jsonData)), nil
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

// AddContextTool registers the workbench_context tool, which returns the
// currently published context.
func AddContextTool(s *server.MCPServer, src ContextSource, excerptChars int) {
	tool := mcp.NewTool(
		"workbench_context",
		mcp.WithDescription("Return the current workbench context: the active file excerpt and a project file overview, ranked by relevance."),
		mcp.WithString("format",
			mcp.Enum("prompt", "json"),
			mcp.Description("'prompt' (default) returns a markdown block ready to prepend to a prompt; 'json' returns the ranked items")),
		mcp.WithNumber("excerpt_chars",
			mcp.Description("Characters of the active file to include in 'prompt' output (default from config)")),
	)

	s.AddTool(tool, createContextHandler(src, excerptChars))
}

// contextArgs are the workbench_context tool arguments.
type contextArgs struct {
	Format       string `json:"format"`
	ExcerptChars int    `json:"excerpt_chars"`
}

func createContextHandler(src ContextSource, excerptChars int) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args contextArgs
		if err := mcputils.BindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.Format == "" {
			args.Format = "prompt"
		}
		if args.ExcerptChars <= 0 {
			args.ExcerptChars = excerptChars
		}

		items := src.Items()
		switch args.Format {
		case "prompt":
			return mcp.NewToolResultText(summary.RenderWithExcerpt(items, args.ExcerptChars)), nil
		case "json":
			if items == nil {
				items = []summary.Item{}
			}
			jsonData, err := json.Marshal(map[string]any{"items": items, "total": len(items)})
			if err != nil {
				return nil, fmt.Errorf("failed to marshal items: %w", err)
			}
			return mcp.NewToolResultText(string(jsonData)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", args.Format)), nil
		}
	}
}
