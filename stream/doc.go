// Package stream converts the raw, possibly fragmented event stream of one
// model call into a clean sequence of normalized chunks and finalized
// messages.
//
// The Processor is the single entry point: the runner feeds it every raw
// event from the backend and forwards the chunks it returns; when the stream
// ends, Finalize projects the accumulated state into the assistant message
// and the turn's tool calls in arrival order. A Processor is single use; a
// fresh stream (and Processor) is required per model call.
package stream
