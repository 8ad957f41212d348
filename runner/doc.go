// Package runner implements the orchestration loop that turns an agent tree
// into a conversation.
//
// The Runner owns the append-only history and drives one step loop per run:
// render the current agent's request, stream the model turn, fold the raw
// events into chunks, commit the assistant message and its tool calls, then
// execute the calls in arrival order. Transfer markers move control inside
// the agent tree, confirmation-gated tools suspend the run until the caller
// decides, and an explicit step budget bounds the number of model calls.
//
// Chunks stream over a channel while the loop works; history records what
// survived. SetChatHistory replays a recorded conversation back into the
// runner, deriving the current agent from the transfer calls it contains.
package runner
