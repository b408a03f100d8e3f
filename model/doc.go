// Package model defines the provider-agnostic gateway used by the agent loop
// to query a chat-completion model.
//
// A Gateway receives the system prompt, the full message history and the
// tool descriptors, and returns a Completion that is either a final answer
// or an ordered list of tool calls. Providers (model/openai,
// model/anthropic) classify failures into transient
// (*core.ModelUnavailableError) and contract (*core.ModelProtocolError)
// errors. ScriptedGateway is a deterministic double for tests.
package model
