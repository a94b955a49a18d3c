package browsertools

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer exposes the driver as an MCP tool server. Tool failures are
// reported as tool-result errors, not protocol errors, so the agent can
// recover from them.
func NewServer(d *Driver) *server.MCPServer {
	s := server.NewMCPServer("webagent-toolserver", "0.1.0",
		server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("navigate",
		mcp.WithDescription("Navigate the browser to an absolute http/https URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Destination URL")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := d.Navigate(url); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return snapshotResult(d, "Navigated to "+url)
	})

	s.AddTool(mcp.NewTool("click",
		mcp.WithDescription("Click the interactive element with the given snapshot id."),
		mcp.WithString("element_id", mcp.Required(), mcp.Description("Numeric id from the page snapshot, e.g. \"12\"")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("element_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := d.Click(id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return snapshotResult(d, "Clicked element "+id)
	})

	s.AddTool(mcp.NewTool("type_text",
		mcp.WithDescription("Type text into the input element with the given snapshot id."),
		mcp.WithString("element_id", mcp.Required(), mcp.Description("Numeric id from the page snapshot")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to type")),
		mcp.WithBoolean("submit", mcp.Description("Press Enter after typing (use for search boxes)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("element_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := d.Type(id, text, req.GetBool("submit", false)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return snapshotResult(d, fmt.Sprintf("Typed %q into element %s", text, id))
	})

	s.AddTool(mcp.NewTool("snapshot",
		mcp.WithDescription("Return the current page as an indented tree of visible elements; interactive ones carry [N] ids."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return snapshotResult(d, "")
	})

	s.AddTool(mcp.NewTool("screenshot",
		mcp.WithDescription("Capture the current viewport as a JPEG image."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		buf, err := d.Screenshot()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultImage("Screenshot of "+d.URL(),
			base64.StdEncoding.EncodeToString(buf), "image/jpeg"), nil
	})

	return s
}

func snapshotResult(d *Driver, prefix string) (*mcp.CallToolResult, error) {
	snap, err := d.Snapshot()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := fmt.Sprintf("URL: %s\nTitle: %s\n\n%s", snap.URL, snap.Title, snap.Tree)
	if prefix != "" {
		text = prefix + "\n" + text
	}
	return mcp.NewToolResultText(text), nil
}
