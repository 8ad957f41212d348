// Package agent contains the agent abstraction that couples a language model
// with instructions, a tool registry and an optional handoff hierarchy. The
// package focuses on three concerns:
//
//  1. Identity + hierarchy plumbing (AddHandoff, FindAgent, Root)
//  2. Request assembly (system prompt rendering, payload projection, tool
//     declarations) via BuildRequest
//  3. Schema-validated tool execution with panic containment via ExecuteTool
//
// Design principles:
//   - Minimal hidden global state – explicit wiring via options and AddHandoff
//   - Composability – agents nest into trees; transfer targets derive from the
//     current roster on every request
//   - Observability – structured logging hooks on handoff wiring and tool panics
//
// Execution Model:
//   - The runner owns the conversation history and the step loop
//   - An agent renders one model request per step and executes the tools the
//     model asked for when the runner dispatches them
//   - Control-flow tools (transfer_to_agent, transfer_to_parent, task_done)
//     are declared by the agent but interpreted by the runner
//
// The package intentionally keeps model specifics, stream folding and history
// bookkeeping in their respective packages to avoid cyclic deps.
package agent
