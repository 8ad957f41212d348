// Package core provides the foundational domain types used by LiteAgent. It
// defines the core abstractions for:
//
//   - Messages (the immutable conversation records a Runner keeps as history)
//   - Chunks (the transient units a streaming completion emits while a turn
//     is in progress)
//   - Boundary normalization (converting caller supplied representations such
//     as maps, raw JSON or plain strings into the closed Message variant set)
//
// History is an ordered, append-only sequence of Messages owned exclusively by
// the Runner; insertion order is semantically meaningful because it is the
// literal conversation replayed to the model. Chunks are produced, consumed
// and discarded within one step and never persisted directly.
//
// The package intentionally keeps implementation concerns (model backends,
// tool execution, the step loop) out of scope, exposing small value types so
// the higher layers stay decoupled.
package core
