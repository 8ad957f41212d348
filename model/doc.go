// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with streaming completion backends inside LiteAgent.
//
// Core goals:
//   - Unify streaming generation behind a single interface (Model)
//   - Normalize the raw event shape across vendors (Event, ToolCallDelta)
//   - Keep request shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic, replay) implement the Model interface
// from this package so the runner and agents remain decoupled from vendor
// SDKs. The raw Event stream is folded into normalized chunks by the stream
// package; backends only translate their wire protocol into Events.
package model
