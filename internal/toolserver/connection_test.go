package toolserver

import (
	"encoding/base64"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeTool(t *testing.T) {
	tool := mcp.NewTool("navigate",
		mcp.WithDescription("Open a URL in the browser."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Absolute URL to open.")),
		mcp.WithBoolean("wait", mcp.Description("Wait for network idle.")),
	)

	d := describeTool(tool)
	assert.Equal(t, "navigate", d.Name)
	assert.Equal(t, "Open a URL in the browser.", d.Description)
	assert.Equal(t, "string", d.Properties["url"])
	assert.Equal(t, "boolean", d.Properties["wait"])
	assert.Equal(t, []string{"url"}, d.Required)
}

func TestDescribeToolsRendering(t *testing.T) {
	conn := &Connection{tools: []ToolDescriptor{
		{
			Name:        "click",
			Description: "Click an element.",
			Properties:  map[string]string{"element_id": "string"},
			Required:    []string{"element_id"},
		},
	}}

	got := conn.DescribeTools()
	assert.Contains(t, got, "- click: Click an element.")
	assert.Contains(t, got, "element_id (string, required)")
}

func TestParseResultText(t *testing.T) {
	res := &mcp.CallToolResult{Content: []mcp.Content{
		mcp.TextContent{Type: "text", Text: "navigated"},
		mcp.TextContent{Type: "text", Text: "title: Example"},
	}}

	out, err := parseResult("navigate", res, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "navigated\ntitle: Example", out.Text)
	assert.Empty(t, out.Images)
}

func TestParseResultImage(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff}
	res := &mcp.CallToolResult{Content: []mcp.Content{
		mcp.ImageContent{
			Type:     "image",
			Data:     base64.StdEncoding.EncodeToString(raw),
			MIMEType: "image/jpeg",
		},
	}}

	out, err := parseResult("screenshot", res, slog.Default())
	require.NoError(t, err)
	require.Len(t, out.Images, 1)
	assert.Equal(t, raw, out.Images[0].Data)
	assert.Equal(t, "image/jpeg", out.Images[0].MIMEType)
}

func TestParseResultServerError(t *testing.T) {
	res := &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "element not found"}},
		IsError: true,
	}

	_, err := parseResult("click", res, slog.Default())
	var invErr *ToolInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "click", invErr.Tool)
	assert.Equal(t, "element not found", invErr.Message)
}

func TestParseResultErrorWithoutMessage(t *testing.T) {
	_, err := parseResult("click", &mcp.CallToolResult{IsError: true}, slog.Default())
	var invErr *ToolInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "tool reported an error without a message", invErr.Message)
}

func TestConnectRequiresCommand(t *testing.T) {
	_, err := Connect(t.Context(), Options{}, slog.Default())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}
