// Package mcp exposes tools served over the Model Context Protocol as regular
// liteagent tools. A Toolset wraps one MCP server connection (stdio command,
// SSE or streamable HTTP); Tools lists the server's tools adapted to the
// tool.Tool interface so they mix freely with local function tools on an agent.
//
// The connection is established lazily on first use and shared by every tool
// of the set. Close terminates the session.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/liteagent/logging"
	"github.com/hupe1980/liteagent/tool"
)

// Options configures optional Toolset behavior.
type Options struct {
	// Logger receives structured connection and call events. Defaults to a
	// no-op logger.
	Logger logging.Logger
	// ClientName and ClientVersion identify this client during the MCP
	// handshake.
	ClientName    string
	ClientVersion string
	// HTTPClient replaces the default transport for HTTP based connections.
	HTTPClient *http.Client
}

// Toolset connects to a single MCP server and adapts its tools. The zero value
// is not usable; construct with New or one of the transport helpers.
//
// Concurrency: the underlying SDK session is safe for concurrent use, so the
// adapted tools are too.
type Toolset struct {
	transport sdk.Transport
	client    *sdk.Client
	logger    logging.Logger

	once       sync.Once
	session    *sdk.ClientSession
	connectErr error
}

// New creates a Toolset over an explicit SDK transport. Most callers use
// NewCommand, NewSSE or NewStreamableHTTP instead.
func New(transport sdk.Transport, optFns ...func(o *Options)) *Toolset {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		ClientName:    "liteagent",
		ClientVersion: "dev",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	client := sdk.NewClient(&sdk.Implementation{
		Name:    opts.ClientName,
		Version: opts.ClientVersion,
	}, nil)

	return &Toolset{
		transport: transport,
		client:    client,
		logger:    opts.Logger,
	}
}

// NewCommand creates a Toolset talking to an MCP server subprocess over stdio.
// The command must not have been started.
func NewCommand(cmd *exec.Cmd, optFns ...func(o *Options)) *Toolset {
	return New(&sdk.CommandTransport{Command: cmd}, optFns...)
}

// NewSSE creates a Toolset talking to an MCP server over server-sent events.
func NewSSE(endpoint string, optFns ...func(o *Options)) *Toolset {
	return New(&sdk.SSEClientTransport{Endpoint: endpoint}, optFns...)
}

// NewStreamableHTTP creates a Toolset talking to an MCP server over the
// streamable HTTP transport.
func NewStreamableHTTP(endpoint string, optFns ...func(o *Options)) *Toolset {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	return New(&sdk.StreamableClientTransport{
		Endpoint:   endpoint,
		HTTPClient: opts.HTTPClient,
	}, optFns...)
}

// ensureConnected dials the server exactly once; later calls observe the same
// session or the same error.
func (ts *Toolset) ensureConnected(ctx context.Context) error {
	ts.once.Do(func() {
		session, err := ts.client.Connect(ctx, ts.transport, nil)
		if err != nil {
			ts.connectErr = fmt.Errorf("mcp connect: %w", err)
			ts.logger.Error("mcp.connect.failed", "error", err.Error())

			return
		}

		ts.session = session
		ts.logger.Info("mcp.connect.success")
	})

	return ts.connectErr
}

// Tools lists the server's tools adapted to the tool.Tool interface. Each call
// fetches a fresh listing; the returned tools stay bound to this Toolset's
// session.
func (ts *Toolset) Tools(ctx context.Context) ([]tool.Tool, error) {
	if err := ts.ensureConnected(ctx); err != nil {
		return nil, err
	}

	result, err := ts.session.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("mcp list tools: %w", err)
	}

	tools := make([]tool.Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, &serverTool{
			toolset:     ts,
			name:        t.Name,
			description: t.Description,
			parameters:  toSchema(t.InputSchema),
		})
	}

	ts.logger.Debug("mcp.tools.listed", "count", len(tools))

	return tools, nil
}

// Close terminates the server session. Closing a Toolset that never connected
// is a no-op.
func (ts *Toolset) Close() error {
	if ts.session == nil {
		return nil
	}

	return ts.session.Close()
}

// serverTool adapts one remote MCP tool. Parameters are captured at list time;
// Call round-trips through the shared session.
type serverTool struct {
	toolset     *Toolset
	name        string
	description string
	parameters  map[string]any
}

// Name returns the tool name as advertised by the server.
func (t *serverTool) Name() string { return t.name }

// Description returns the server supplied description.
func (t *serverTool) Description() string { return t.description }

// Parameters returns the input schema as advertised by the server.
func (t *serverTool) Parameters() map[string]any { return t.parameters }

// Call invokes the remote tool and flattens its content blocks into one text
// result. A result the server flags as an error comes back as *ToolError so
// downstream handling matches local tools.
func (t *serverTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := t.toolset.ensureConnected(ctx); err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}

	t.toolset.logger.Debug("mcp.tool.call", "tool", t.name, "fc_id", tool.CallIDFromContext(ctx))

	result, err := t.toolset.session.CallTool(ctx, &sdk.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return nil, &tool.ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	text := contentText(result.Content)

	if result.IsError {
		return nil, &tool.ToolError{
			Tool:    t.name,
			Message: text,
			Code:    "EXECUTION_ERROR",
		}
	}

	return text, nil
}

// contentText joins the text blocks of a tool result. Non-text content is
// skipped.
func contentText(content []sdk.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*sdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// toSchema coerces the server supplied input schema into the map shape the
// tool interface expects, falling back to a permissive object schema.
func toSchema(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}

	if v != nil {
		if data, err := json.Marshal(v); err == nil {
			var m map[string]any
			if err := json.Unmarshal(data, &m); err == nil && m != nil {
				return m
			}
		}
	}

	return map[string]any{"type": "object"}
}
