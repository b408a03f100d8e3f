package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is one outbound exchange: system prompt, the full history and the
// tool descriptors in declaration order.
type Request struct {
	SystemPrompt string           `json:"system_prompt"`
	History      []core.Message   `json:"history"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Completion is the inbound half of an exchange. It is either a final
// answer (no ToolCalls) or a tool request (one or more ToolCalls, in the
// order the model emitted them).
type Completion struct {
	Text         string          `json:"text,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"` // "stop", "tool_calls", "length", ...
	Usage        TokenUsage      `json:"usage"`
}

// IsFinal reports whether the completion is a final answer.
func (c *Completion) IsFinal() bool { return len(c.ToolCalls) == 0 }

// Info contains metadata about a gateway implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Gateway abstracts a chat-completion oracle. Implementations classify
// failures as *core.ModelUnavailableError (transient) or
// *core.ModelProtocolError (contract violation).
type Gateway interface {
	Complete(ctx context.Context, req Request) (*Completion, error)

	// Info returns information about the gateway implementation.
	Info() Info
}

// CheckCompletion verifies a completion against the gateway contract for
// the tool set that was offered. Violations are *core.ModelProtocolError.
//
// A call naming a tool outside the offered set is not a violation here: the
// agent loop answers it with an unknown-tool result so the model can recover.
func CheckCompletion(c *Completion, tools []ToolDefinition) error {
	if c == nil {
		return &core.ModelProtocolError{Reason: "nil completion"}
	}
	if c.IsFinal() {
		if strings.TrimSpace(c.Text) == "" {
			return &core.ModelProtocolError{Reason: "empty completion"}
		}
		return nil
	}

	seen := make(map[string]bool, len(c.ToolCalls))
	for i, call := range c.ToolCalls {
		switch {
		case call.ID == "":
			return &core.ModelProtocolError{Reason: fmt.Sprintf("tool call %d has no id", i)}
		case seen[call.ID]:
			return &core.ModelProtocolError{Reason: fmt.Sprintf("duplicate tool call id %q", call.ID)}
		case call.Name == "":
			return &core.ModelProtocolError{Reason: fmt.Sprintf("tool call %q has no name", call.ID)}
		case len(tools) == 0:
			return &core.ModelProtocolError{Reason: fmt.Sprintf("tool call %q but no tools were offered", call.Name)}
		}
		seen[call.ID] = true

		if err := checkArguments(call.Arguments); err != nil {
			return &core.ModelProtocolError{Reason: fmt.Sprintf("tool call %q has malformed arguments", call.ID), Err: err}
		}
	}

	return nil
}

// checkArguments accepts an empty payload or a JSON object.
func checkArguments(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	return nil
}

// DecodeArguments decodes a call's argument payload into a map. An empty
// payload decodes to an empty map.
func DecodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
