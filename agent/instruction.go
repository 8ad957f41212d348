package agent

import "context"

// Provider computes instruction text each time an agent builds a model
// request. Use it when the system prompt depends on runtime state.
type Provider interface {
	Instruction(ctx context.Context) (string, error)
}

// Func adapts a plain function into a Provider.
type Func func(ctx context.Context) (string, error)

// Instruction calls f.
func (f Func) Instruction(ctx context.Context) (string, error) { return f(ctx) }

// Instruction holds an agent's system prompt, either as fixed text or as a
// Provider consulted on every request.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText returns an Instruction with fixed text.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider returns an Instruction resolved through p.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc returns an Instruction resolved through f.
func NewInstructionFromFunc(f func(ctx context.Context) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic reports whether the instruction is fixed text.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, consulting the provider when one is set.
func (i Instruction) Resolve(ctx context.Context) (string, error) {
	if i.provider == nil {
		return i.text, nil
	}
	return i.provider.Instruction(ctx)
}
