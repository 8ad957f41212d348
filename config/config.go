// Package config loads multi-agent trees from YAML. A document names a root
// agent and describes every agent of the tree: provider, model, instructions,
// completion condition and handoff targets. Build turns a validated document
// into a wired *agent.Agent hierarchy ready for the runner.
//
//	root: assistant
//	agents:
//	  assistant:
//	    provider: openai
//	    model: gpt-4.1
//	    instructions: |
//	      You route requests.
//	    handoffs: [weather]
//	  weather:
//	    provider: openai
//	    model: gpt-4.1-mini
//	    instructions: You answer weather questions.
//	    completion: call
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/hupe1980/liteagent/agent"
	"github.com/hupe1980/liteagent/logging"
	"github.com/hupe1980/liteagent/model"
	"github.com/hupe1980/liteagent/model/anthropic"
	"github.com/hupe1980/liteagent/model/openai"
	"github.com/hupe1980/liteagent/model/replay"
)

// Config is the top-level YAML document describing an agent tree.
type Config struct {
	// Root names the entry in Agents that receives user input first.
	Root string `yaml:"root"`
	// Agents maps agent names to their definitions.
	Agents map[string]AgentConfig `yaml:"agents"`
}

// AgentConfig describes one agent of the tree.
type AgentConfig struct {
	// Provider selects the model backend: openai, anthropic or replay (with a
	// custom factory, anything the factory accepts).
	Provider string `yaml:"provider"`
	// Model is the provider model name, or the recording path for replay.
	Model string `yaml:"model"`
	// Instructions form the agent's system prompt; template actions are
	// rendered against the run context.
	Instructions string `yaml:"instructions"`
	// Completion is the completion condition: stop (default) or call.
	Completion string `yaml:"completion,omitempty"`
	// Handoffs lists the agent's transfer targets by name.
	Handoffs []string `yaml:"handoffs,omitempty"`

	// Temperature overrides the provider default when set.
	Temperature *float64 `yaml:"temperature,omitempty"`
	// MaxTokens caps the response length when set.
	MaxTokens *int64 `yaml:"max_tokens,omitempty"`
	// BaseURL points the provider client at a compatible endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
}

// Load reads and parses the YAML document at path. The returned config is
// validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse parses and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config\n%s", yaml.FormatError(err, false, true))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the document's structure: the root must exist, every agent
// needs a provider and model, handoff targets must be defined, no agent may be
// listed twice or claimed by two parents, the completion condition must be
// known, and the handoff graph must be acyclic.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("config defines no agents")
	}
	if c.Root == "" {
		return fmt.Errorf("config has no root agent")
	}
	if _, ok := c.Agents[c.Root]; !ok {
		return fmt.Errorf("root agent %q is not defined", c.Root)
	}

	parents := map[string]string{}

	for _, name := range c.agentNames() {
		ac := c.Agents[name]

		if ac.Provider == "" {
			return fmt.Errorf("agent %q has no provider", name)
		}
		if ac.Model == "" {
			return fmt.Errorf("agent %q has no model", name)
		}

		switch agent.CompletionCondition(ac.Completion) {
		case "", agent.CompleteOnStop, agent.CompleteOnCall:
		default:
			return fmt.Errorf("agent %q has unknown completion condition %q", name, ac.Completion)
		}

		seen := map[string]bool{}
		for _, target := range ac.Handoffs {
			if _, ok := c.Agents[target]; !ok {
				return fmt.Errorf("agent %q hands off to undefined agent %q", name, target)
			}
			if target == name {
				return fmt.Errorf("agent %q hands off to itself", name)
			}
			if seen[target] {
				return fmt.Errorf("agent %q lists handoff %q twice", name, target)
			}
			seen[target] = true

			if parent, claimed := parents[target]; claimed {
				return fmt.Errorf("agent %q is a handoff of both %q and %q", target, parent, name)
			}
			parents[target] = name
		}
	}

	return c.checkCycles()
}

// checkCycles rejects handoff chains that loop back on themselves.
func (c *Config) checkCycles() error {
	const (
		visiting = 1
		done     = 2
	)

	state := map[string]int{}

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("handoff cycle through agent %q", name)
		case done:
			return nil
		}

		state[name] = visiting
		for _, target := range c.Agents[name].Handoffs {
			if err := visit(target); err != nil {
				return err
			}
		}
		state[name] = done

		return nil
	}

	for _, name := range c.agentNames() {
		if err := visit(name); err != nil {
			return err
		}
	}

	return nil
}

// agentNames returns the agent names in deterministic order.
func (c *Config) agentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// ModelFactory constructs the model backend for one agent entry.
type ModelFactory func(name string, cfg AgentConfig) (model.Model, error)

// BuildOptions configure Build.
type BuildOptions struct {
	// ModelFactory replaces the built-in provider mapping, e.g. to inject fake
	// models in tests or to support additional providers.
	ModelFactory ModelFactory
	// Logger is handed to every constructed agent. Defaults to a no-op logger.
	Logger logging.Logger
}

// Build validates the document and constructs the agent tree, returning the
// root agent. Agents are created first, then handoffs are wired, so forward
// references between entries are fine.
func (c *Config) Build(optFns ...func(o *BuildOptions)) (*agent.Agent, error) {
	opts := BuildOptions{
		ModelFactory: DefaultModelFactory,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	agents := map[string]*agent.Agent{}

	for _, name := range c.agentNames() {
		ac := c.Agents[name]

		llm, err := opts.ModelFactory(name, ac)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", name, err)
		}

		agents[name] = agent.New(name, ac.Instructions, llm, func(o *agent.Options) {
			if ac.Completion != "" {
				o.CompletionCondition = agent.CompletionCondition(ac.Completion)
			}
			o.Logger = opts.Logger
		})
	}

	for _, name := range c.agentNames() {
		parent := agents[name]
		for _, target := range c.Agents[name].Handoffs {
			if err := parent.AddHandoff(agents[target]); err != nil {
				return nil, fmt.Errorf("agent %q: %w", name, err)
			}
		}
	}

	return agents[c.Root], nil
}

// DefaultModelFactory maps the built-in providers. The model field feeds the
// provider's model option; for replay it is the recording path.
func DefaultModelFactory(name string, cfg AgentConfig) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(func(o *openai.Options) {
			o.Model = cfg.Model
			if cfg.Temperature != nil {
				o.Temperature = *cfg.Temperature
			}
			if cfg.MaxTokens != nil {
				o.MaxCompletionTokens = *cfg.MaxTokens
			}
			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}
		}), nil

	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			o.Model = cfg.Model
			if cfg.Temperature != nil {
				o.Temperature = *cfg.Temperature
			}
			if cfg.MaxTokens != nil {
				o.MaxTokens = *cfg.MaxTokens
			}
			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}
		}), nil

	case "replay":
		return replay.NewPlayer(cfg.Model), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
