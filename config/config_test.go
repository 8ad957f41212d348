package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/liteagent/agent"
	"github.com/hupe1980/liteagent/internal/testutil"
	"github.com/hupe1980/liteagent/model"
)

const treeYAML = `
root: assistant
agents:
  assistant:
    provider: openai
    model: gpt-4.1
    instructions: |
      You route requests.
    handoffs: [weather, translator]
  weather:
    provider: openai
    model: gpt-4.1-mini
    instructions: You answer weather questions.
  translator:
    provider: anthropic
    model: claude-sonnet-4-0
    instructions: You translate text.
    completion: call
`

// fakeFactory builds scripted models and records which entries it saw.
func fakeFactory(built *map[string]AgentConfig) ModelFactory {
	return func(name string, cfg AgentConfig) (model.Model, error) {
		(*built)[name] = cfg
		return testutil.NewScriptModel(testutil.TextTurn("ok")), nil
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(treeYAML))
	require.NoError(t, err)

	assert.Equal(t, "assistant", cfg.Root)
	assert.Len(t, cfg.Agents, 3)
	assert.Equal(t, []string{"weather", "translator"}, cfg.Agents["assistant"].Handoffs)
	assert.Equal(t, "call", cfg.Agents["translator"].Completion)
	assert.Contains(t, cfg.Agents["assistant"].Instructions, "route requests")
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("root: [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.yaml")
	require.NoError(t, os.WriteFile(path, []byte(treeYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "assistant", cfg.Root)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no agents",
			yaml: `root: a`,
			want: "no agents",
		},
		{
			name: "no root",
			yaml: `
agents:
  a: {provider: openai, model: m, instructions: i}
`,
			want: "no root",
		},
		{
			name: "unknown root",
			yaml: `
root: ghost
agents:
  a: {provider: openai, model: m, instructions: i}
`,
			want: `root agent "ghost" is not defined`,
		},
		{
			name: "missing provider",
			yaml: `
root: a
agents:
  a: {model: m, instructions: i}
`,
			want: "no provider",
		},
		{
			name: "missing model",
			yaml: `
root: a
agents:
  a: {provider: openai, instructions: i}
`,
			want: "no model",
		},
		{
			name: "unknown completion",
			yaml: `
root: a
agents:
  a: {provider: openai, model: m, instructions: i, completion: sometimes}
`,
			want: "unknown completion condition",
		},
		{
			name: "unknown handoff target",
			yaml: `
root: a
agents:
  a: {provider: openai, model: m, instructions: i, handoffs: [ghost]}
`,
			want: `undefined agent "ghost"`,
		},
		{
			name: "self handoff",
			yaml: `
root: a
agents:
  a: {provider: openai, model: m, instructions: i, handoffs: [a]}
`,
			want: "hands off to itself",
		},
		{
			name: "duplicate handoff",
			yaml: `
root: a
agents:
  a: {provider: openai, model: m, instructions: i, handoffs: [b, b]}
  b: {provider: openai, model: m, instructions: i}
`,
			want: `lists handoff "b" twice`,
		},
		{
			name: "two parents",
			yaml: `
root: a
agents:
  a: {provider: openai, model: m, instructions: i, handoffs: [b, c]}
  b: {provider: openai, model: m, instructions: i, handoffs: [d]}
  c: {provider: openai, model: m, instructions: i, handoffs: [d]}
  d: {provider: openai, model: m, instructions: i}
`,
			want: "is a handoff of both",
		},
		{
			name: "cycle",
			yaml: `
root: a
agents:
  a: {provider: openai, model: m, instructions: i, handoffs: [b]}
  b: {provider: openai, model: m, instructions: i, handoffs: [c]}
  c: {provider: openai, model: m, instructions: i, handoffs: [a]}
`,
			want: "handoff cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildWiresTree(t *testing.T) {
	cfg, err := Parse([]byte(treeYAML))
	require.NoError(t, err)

	built := map[string]AgentConfig{}
	root, err := cfg.Build(func(o *BuildOptions) {
		o.ModelFactory = fakeFactory(&built)
	})
	require.NoError(t, err)
	require.NotNil(t, root)

	assert.Equal(t, "assistant", root.Name())
	assert.Len(t, built, 3)
	assert.Equal(t, "gpt-4.1", built["assistant"].Model)

	handoffs := root.Handoffs()
	require.Len(t, handoffs, 2)
	assert.Equal(t, "weather", handoffs[0].Name())
	assert.Equal(t, "translator", handoffs[1].Name())

	weather := root.FindAgent("weather")
	require.NotNil(t, weather)
	assert.Equal(t, root, weather.Parent())
	assert.Equal(t, agent.CompleteOnStop, weather.CompletionCondition())

	translator := root.FindAgent("translator")
	require.NotNil(t, translator)
	assert.Equal(t, agent.CompleteOnCall, translator.CompletionCondition())
	assert.True(t, translator.HasTool("task_done"))
}

func TestBuildFactoryError(t *testing.T) {
	cfg, err := Parse([]byte(`
root: a
agents:
  a: {provider: megacorp, model: m, instructions: i}
`))
	require.NoError(t, err)

	_, err = cfg.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "megacorp"`)
}

func TestDefaultModelFactoryProviders(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "replay"} {
		llm, err := DefaultModelFactory("a", AgentConfig{Provider: provider, Model: "m"})
		require.NoError(t, err, provider)
		require.NotNil(t, llm, provider)
	}

	_, err := DefaultModelFactory("a", AgentConfig{Provider: "nope", Model: "m"})
	assert.Error(t, err)
}
