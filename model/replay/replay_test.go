package replay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/liteagent/agent"
	"github.com/hupe1980/liteagent/core"
	"github.com/hupe1980/liteagent/internal/testutil"
	"github.com/hupe1980/liteagent/model"
	"github.com/hupe1980/liteagent/runner"
	"github.com/hupe1980/liteagent/tool"
)

func collect(events <-chan model.Event, errs <-chan error) ([]model.Event, error) {
	var out []model.Event
	for ev := range events {
		out = append(out, ev)
	}

	return out, <-errs
}

// -------------------- Recorder Tests --------------------

func TestRecorderTeesEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordings", "run.jsonl")

	inner := testutil.NewScriptModel(
		testutil.NewTurn().Text("Hello").Usage(5, 2).Finish("stop").Build(),
	)
	rec, err := NewRecorder(inner, path)
	require.NoError(t, err)

	streamed, err := collect(rec.Stream(context.Background(), model.Request{}))
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	recorded, err := ReadEvents(path)
	require.NoError(t, err)

	// One line per event, byte-for-byte reproducible.
	require.Len(t, recorded, 3)
	assert.Equal(t, streamed, recorded)
	assert.Equal(t, "Hello", recorded[0].ContentDelta)
	require.NotNil(t, recorded[1].Usage)
	assert.Equal(t, int64(5), recorded[1].Usage.InputTokens)
	assert.Equal(t, "stop", recorded[2].FinishReason)
}

func TestRecorderPassesThroughStreamError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")

	inner := testutil.NewScriptModel(
		testutil.NewTurn().Text("partial").Fail(assert.AnError).Build(),
	)
	rec, err := NewRecorder(inner, path)
	require.NoError(t, err)

	streamed, err := collect(rec.Stream(context.Background(), model.Request{}))
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, rec.Close())

	// The partial prefix is still captured.
	require.Len(t, streamed, 1)
	recorded, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "partial", recorded[0].ContentDelta)
}

// -------------------- Player Tests --------------------

func TestPlayerReplaysTurnByTurn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")

	inner := testutil.NewScriptModel(
		testutil.CallTurn("call_1", "get_weather", `{"city":"Berlin"}`),
		testutil.TextTurn("Sunny."),
	)
	rec, err := NewRecorder(inner, path)
	require.NoError(t, err)

	first, err := collect(rec.Stream(context.Background(), model.Request{}))
	require.NoError(t, err)
	second, err := collect(rec.Stream(context.Background(), model.Request{}))
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	player := NewPlayer(path)

	replayed, err := collect(player.Stream(context.Background(), model.Request{}))
	require.NoError(t, err)
	assert.Equal(t, first, replayed)

	replayed, err = collect(player.Stream(context.Background(), model.Request{}))
	require.NoError(t, err)
	assert.Equal(t, second, replayed)

	_, err = collect(player.Stream(context.Background(), model.Request{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording exhausted")
}

func TestPlayerMissingRecording(t *testing.T) {
	player := NewPlayer(filepath.Join(t.TempDir(), "absent.jsonl"))

	_, err := collect(player.Stream(context.Background(), model.Request{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recorded response found at")
}

func TestPlayerRewind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")

	inner := testutil.NewScriptModel(testutil.TextTurn("Again."))
	rec, err := NewRecorder(inner, path)
	require.NoError(t, err)

	first, err := collect(rec.Stream(context.Background(), model.Request{}))
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	player := NewPlayer(path)
	replayed, err := collect(player.Stream(context.Background(), model.Request{}))
	require.NoError(t, err)
	assert.Equal(t, first, replayed)

	player.Rewind()

	replayed, err = collect(player.Stream(context.Background(), model.Request{}))
	require.NoError(t, err)
	assert.Equal(t, first, replayed)
}

// -------------------- Reproduction Tests --------------------

func TestPlayerReproducesRunnerHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")

	clock := tool.NewFunctionTool("get_time", "Tells the current time",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args map[string]any) (any, error) {
			return "12:00", nil
		})

	live := testutil.NewScriptModel(
		testutil.CallTurn("call_1", "get_time", `{}`),
		testutil.TextTurn("It is noon."),
	)
	rec, err := NewRecorder(live, path)
	require.NoError(t, err)

	liveAgent := agent.New("Clock", "You tell the time.", rec, func(o *agent.Options) {
		o.Tools = []tool.Tool{clock}
	})
	liveRunner := runner.New(liveAgent)

	chunkCh, errCh := liveRunner.Run(context.Background(), "what time is it?")
	for range chunkCh {
	}
	require.NoError(t, <-errCh)
	require.NoError(t, rec.Close())

	replayAgent := agent.New("Clock", "You tell the time.", NewPlayer(path), func(o *agent.Options) {
		o.Tools = []tool.Tool{clock}
	})
	replayRunner := runner.New(replayAgent)

	chunkCh, errCh = replayRunner.Run(context.Background(), "what time is it?")
	for range chunkCh {
	}
	require.NoError(t, <-errCh)

	liveMsgs := liveRunner.Messages()
	replayMsgs := replayRunner.Messages()
	require.Len(t, replayMsgs, len(liveMsgs))

	for i := range liveMsgs {
		switch lm := liveMsgs[i].(type) {
		case core.UserMessage:
			rm, ok := replayMsgs[i].(core.UserMessage)
			require.True(t, ok)
			assert.Equal(t, lm.Content, rm.Content)
		case core.AssistantMessage:
			rm, ok := replayMsgs[i].(core.AssistantMessage)
			require.True(t, ok)
			assert.Equal(t, lm.Content, rm.Content)
		case core.FunctionCallMessage:
			rm, ok := replayMsgs[i].(core.FunctionCallMessage)
			require.True(t, ok)
			assert.Equal(t, lm.CallID, rm.CallID)
			assert.Equal(t, lm.Name, rm.Name)
			assert.Equal(t, lm.Arguments, rm.Arguments)
		case core.FunctionCallOutputMessage:
			rm, ok := replayMsgs[i].(core.FunctionCallOutputMessage)
			require.True(t, ok)
			assert.Equal(t, lm.CallID, rm.CallID)
			assert.Equal(t, lm.Output, rm.Output)
		default:
			t.Fatalf("unexpected message type %T", lm)
		}
	}
}
