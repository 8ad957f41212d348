package mcp

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/liteagent/tool"
)

// startServer runs an in-memory MCP server for the duration of the test and
// returns the client side transport.
func startServer(t *testing.T) sdk.Transport {
	t.Helper()

	server := sdk.NewServer(&sdk.Implementation{Name: "test-server", Version: "test"}, nil)

	server.AddTool(&sdk.Tool{
		Name:        "echo",
		Description: "Echo the input text",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []any{"text"},
		},
	}, func(_ context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		var args map[string]string
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, err
		}
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: "echo:" + args["text"]}},
		}, nil
	})

	server.AddTool(&sdk.Tool{
		Name:        "multi",
		Description: "Return two text blocks",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}, func(_ context.Context, _ *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		return &sdk.CallToolResult{
			Content: []sdk.Content{
				&sdk.TextContent{Text: "one"},
				&sdk.TextContent{Text: "two"},
			},
		}, nil
	})

	server.AddTool(&sdk.Tool{
		Name:        "explode",
		Description: "Always fails",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}, func(_ context.Context, _ *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		return &sdk.CallToolResult{
			IsError: true,
			Content: []sdk.Content{&sdk.TextContent{Text: "boom"}},
		}, nil
	})

	serverTransport, clientTransport := sdk.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		session, err := server.Connect(ctx, serverTransport, nil)
		if err != nil {
			return
		}
		<-ctx.Done()
		_ = session.Close()
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return clientTransport
}

// countingTransport counts how often the session is dialed.
type countingTransport struct {
	inner    sdk.Transport
	connects atomic.Int32
}

func (c *countingTransport) Connect(ctx context.Context) (sdk.Connection, error) {
	c.connects.Add(1)
	return c.inner.Connect(ctx)
}

// findTool fetches the named tool from the set or fails the test.
func findTool(t *testing.T, ts *Toolset, name string) tool.Tool {
	t.Helper()

	tools, err := ts.Tools(context.Background())
	require.NoError(t, err)

	for _, tl := range tools {
		if tl.Name() == name {
			return tl
		}
	}

	t.Fatalf("tool %q not listed", name)
	return nil
}

func TestToolsListsServerTools(t *testing.T) {
	ts := New(startServer(t))
	defer ts.Close()

	tools, err := ts.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 3)

	echo := findTool(t, ts, "echo")
	assert.Equal(t, "Echo the input text", echo.Description())

	params := echo.Parameters()
	assert.Equal(t, "object", params["type"])
	props, ok := params["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "text")
}

func TestCallRoundTrip(t *testing.T) {
	ts := New(startServer(t))
	defer ts.Close()

	echo := findTool(t, ts, "echo")

	result, err := echo.Call(context.Background(), map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", result)
}

func TestCallJoinsTextBlocks(t *testing.T) {
	ts := New(startServer(t))
	defer ts.Close()

	multi := findTool(t, ts, "multi")

	result, err := multi.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", result)
}

func TestCallServerError(t *testing.T) {
	ts := New(startServer(t))
	defer ts.Close()

	explode := findTool(t, ts, "explode")

	_, err := explode.Call(context.Background(), map[string]any{})
	require.Error(t, err)

	toolErr, ok := err.(*tool.ToolError)
	require.True(t, ok)
	assert.Equal(t, "explode", toolErr.Tool)
	assert.Equal(t, "boom", toolErr.Message)
}

func TestConnectOnce(t *testing.T) {
	counting := &countingTransport{inner: startServer(t)}

	ts := New(counting)
	defer ts.Close()

	_, err := ts.Tools(context.Background())
	require.NoError(t, err)
	_, err = ts.Tools(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), counting.connects.Load())
}

func TestCloseWithoutConnect(t *testing.T) {
	ts := NewSSE("http://localhost:0/sse")
	assert.NoError(t, ts.Close())
}
