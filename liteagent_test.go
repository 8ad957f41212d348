package liteagent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/liteagent/agent"
	"github.com/hupe1980/liteagent/core"
	"github.com/hupe1980/liteagent/internal/testutil"
	"github.com/hupe1980/liteagent/tool"
)

func emptySchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func TestRunSync(t *testing.T) {
	m := testutil.NewScriptModel(testutil.TextTurn("Hello there."))
	la := New(agent.New("Helper", "You greet people.", m))

	chunks, err := la.RunSync(context.Background(), "hi")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	msgs := la.Messages()
	require.Len(t, msgs, 2)
	asst, ok := msgs[1].(core.AssistantMessage)
	require.True(t, ok)
	assert.Equal(t, "Hello there.", asst.Content)

	assert.Equal(t, "Helper", la.CurrentAgent().Name())
	assert.Equal(t, la.Root(), la.CurrentAgent())
}

func TestRunSyncTerminalError(t *testing.T) {
	m := testutil.NewScriptModel(testutil.NewTurn().Fail(errors.New("backend down")).Build())
	la := New(agent.New("Helper", "You greet people.", m))

	_, err := la.RunSync(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

func TestConfirmationRoundTrip(t *testing.T) {
	m := testutil.NewScriptModel(
		testutil.CallTurn("call_1", "delete_report", `{}`),
		testutil.TextTurn("Deleted."),
	)

	executed := false
	gated := tool.NewFunctionTool("delete_report", "Deletes the report", emptySchema(),
		func(ctx context.Context, args map[string]any) (any, error) {
			executed = true
			return "deleted", nil
		}, func(o *tool.Options) { o.RequireConfirmation = true })

	la := New(agent.New("Admin", "You manage reports.", m, func(o *agent.Options) {
		o.Tools = []tool.Tool{gated}
	}))

	chunks, err := la.RunSync(context.Background(), "delete the report")
	require.NoError(t, err)
	assert.False(t, executed)

	var confirmed bool
	for _, c := range chunks {
		if c.Kind() == core.ChunkTypeRequireConfirm {
			confirmed = true
		}
	}
	assert.True(t, confirmed)
	require.Len(t, la.PendingConfirmation(), 1)

	_, err = la.RunContinueSync(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, executed)
	assert.Nil(t, la.PendingConfirmation())
}

func TestSetChatHistoryAndAppend(t *testing.T) {
	m := testutil.NewScriptModel(testutil.TextTurn("ok"))
	la := New(agent.New("Helper", "You help.", m))

	history := testutil.NewHistory().
		User("earlier question").
		Assistant("earlier answer").
		Build()

	require.NoError(t, la.SetChatHistory(history, nil))
	require.Len(t, la.Messages(), 2)

	require.NoError(t, la.AppendMessage("follow-up"))
	msgs := la.Messages()
	require.Len(t, msgs, 3)
	assert.IsType(t, core.UserMessage{}, msgs[2])
}
