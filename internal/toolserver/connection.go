// Package toolserver owns the lifecycle of a subprocess-backed
// browser-automation tool server spoken to over the MCP stdio
// transport: launch, handshake, tool discovery, invocation, teardown.
package toolserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolDescriptor is the immutable metadata for one callable tool,
// cached at connect time for the lifetime of the session.
type ToolDescriptor struct {
	Name        string
	Description string
	Properties  map[string]string // property name -> primitive type hint
	Required    []string
}

// Image is one binary segment of a tool result.
type Image struct {
	Data     []byte
	MIMEType string
}

// Result is the structured outcome of one tool invocation.
type Result struct {
	Text   string
	Images []Image
}

// Caller is the narrow surface the agent loop depends on, so tests can
// script tool behavior without a live subprocess.
type Caller interface {
	Tools() []ToolDescriptor
	CallTool(ctx context.Context, name string, args map[string]any) (*Result, error)
}

// Options configures the tool-server launch.
type Options struct {
	Command  string
	Args     []string
	Env      []string
	Headless bool // forwarded as a --headless launch argument
}

// Connection is an exclusive session with one tool-server subprocess.
type Connection struct {
	cli    *client.Client
	tools  []ToolDescriptor
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ Caller = (*Connection)(nil)

// Connect launches the tool-server subprocess, performs the MCP
// initialize handshake and caches the discovered tool list.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Command == "" {
		return nil, &ConnectionError{Reason: "no tool server command configured"}
	}

	args := append([]string{}, opts.Args...)
	if opts.Headless {
		args = append(args, "--headless")
	}

	cli, err := client.NewStdioMCPClient(opts.Command, opts.Env, args...)
	if err != nil {
		return nil, &ConnectionError{Reason: "subprocess launch failed", Err: err}
	}

	conn := &Connection{cli: cli, logger: logger}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "webagent", Version: "0.1.0"}
	initRes, err := cli.Initialize(ctx, initReq)
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Reason: "handshake did not complete", Err: err}
	}
	logger.Debug("tool server initialized",
		"server", initRes.ServerInfo.Name, "version", initRes.ServerInfo.Version)

	listRes, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Reason: "tool discovery failed", Err: err}
	}
	for _, t := range listRes.Tools {
		conn.tools = append(conn.tools, describeTool(t))
	}
	logger.Info("connected to tool server", "command", opts.Command, "tools", len(conn.tools))

	return conn, nil
}

func describeTool(t mcp.Tool) ToolDescriptor {
	d := ToolDescriptor{
		Name:        t.Name,
		Description: t.Description,
		Properties:  map[string]string{},
		Required:    append([]string{}, t.InputSchema.Required...),
	}
	for name, prop := range t.InputSchema.Properties {
		hint := "any"
		if pm, ok := prop.(map[string]any); ok {
			if ts, ok := pm["type"].(string); ok {
				hint = ts
			}
		}
		d.Properties[name] = hint
	}
	return d
}

// Tools returns the cached descriptors. No I/O after connect.
func (c *Connection) Tools() []ToolDescriptor {
	out := make([]ToolDescriptor, len(c.tools))
	copy(out, c.tools)
	return out
}

// DescribeTools renders a compact listing of every tool's name,
// description and parameters for prompts and interactive help.
func (c *Connection) DescribeTools() string {
	var b strings.Builder
	for _, t := range c.tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		names := make([]string, 0, len(t.Properties))
		for name := range t.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			suffix := ""
			for _, req := range t.Required {
				if req == name {
					suffix = ", required"
					break
				}
			}
			fmt.Fprintf(&b, "    %s (%s%s)\n", name, t.Properties[name], suffix)
		}
	}
	return b.String()
}

// CallTool sends one invocation and returns its structured result.
func (c *Connection) CallTool(ctx context.Context, name string, args map[string]any) (*Result, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.cli.CallTool(ctx, req)
	if err != nil {
		return nil, &ToolInvocationError{Tool: name, Message: err.Error()}
	}
	return parseResult(name, res, c.logger)
}

// parseResult folds the tagged content list into a Result. A server-side
// error flag becomes a ToolInvocationError carrying the result text.
func parseResult(name string, res *mcp.CallToolResult, logger *slog.Logger) (*Result, error) {
	out := &Result{}
	for _, content := range res.Content {
		switch seg := content.(type) {
		case mcp.TextContent:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += seg.Text
		case mcp.ImageContent:
			data, err := base64.StdEncoding.DecodeString(seg.Data)
			if err != nil {
				logger.Warn("discarding undecodable image segment", "tool", name, "error", err)
				continue
			}
			out.Images = append(out.Images, Image{Data: data, MIMEType: seg.MIMEType})
		}
	}

	if res.IsError {
		msg := out.Text
		if msg == "" {
			msg = "tool reported an error without a message"
		}
		return nil, &ToolInvocationError{Tool: name, Message: msg}
	}
	return out, nil
}

// Close shuts the transport down. Idempotent and safe to call even
// when Connect never completed.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		if c.cli != nil {
			c.closeErr = c.cli.Close()
		}
	})
	return c.closeErr
}
