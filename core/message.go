package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a Message inside a conversation.
type Role string

const (
	// RoleUser marks messages written by the end user (or a delegating agent).
	RoleUser Role = "user"
	// RoleAssistant marks model output: final text or tool-call requests.
	RoleAssistant Role = "assistant"
	// RoleTool marks the result of a single tool invocation.
	RoleTool Role = "tool"
)

// ToolCall is a single tool invocation requested by the model. ID is unique
// within one completion step and links the request to its tool message.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message is one entry of a conversation history.
//
// Content may be empty for assistant messages that only carry ToolCalls.
// Tool messages always carry exactly one ToolCallID matching a ToolCall.ID
// of an earlier assistant message.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"` // tool name on tool messages
	// IsError marks a tool message whose content reports a failed call.
	IsError   bool      `json:"is_error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage creates a final assistant text message.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text, Timestamp: time.Now().UTC()}
}

// NewToolCallMessage creates an assistant message carrying tool-call requests
// in the order the model emitted them.
func NewToolCallMessage(text string, calls []ToolCall) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   text,
		ToolCalls: CloneToolCalls(calls),
		Timestamp: time.Now().UTC(),
	}
}

// NewToolResultMessage creates the tool message answering call id.
func NewToolResultMessage(id, name, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: id,
		Name:       name,
		Timestamp:  time.Now().UTC(),
	}
}

// NewToolErrorMessage creates the tool message reporting that call id failed.
func NewToolErrorMessage(id, name, content string) Message {
	m := NewToolResultMessage(id, name, content)
	m.IsError = true
	return m
}

// HasToolCalls reports whether the message requests tool invocations.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// CloneToolCalls deep-copies calls including argument payloads.
func CloneToolCalls(calls []ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		out[i] = ToolCall{ID: c.ID, Name: c.Name}
		if c.Arguments != nil {
			out[i].Arguments = append(json.RawMessage(nil), c.Arguments...)
		}
	}
	return out
}

// CloneMessages deep-copies a history so the copy can be mutated freely.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		out[i].ToolCalls = CloneToolCalls(m.ToolCalls)
	}
	return out
}

// ValidateHistory checks the tool pairing invariant: every tool message
// answers a call id issued by an earlier assistant message, and each call id
// is answered at most once.
func ValidateHistory(msgs []Message) error {
	pending := map[string]bool{}
	for i, m := range msgs {
		switch m.Role {
		case RoleUser:
		case RoleAssistant:
			for _, c := range m.ToolCalls {
				if c.ID == "" {
					return fmt.Errorf("%w: message %d has tool call without id", ErrInvalidHistory, i)
				}
				pending[c.ID] = true
			}
		case RoleTool:
			if m.ToolCallID == "" {
				return fmt.Errorf("%w: tool message %d has no tool_call_id", ErrInvalidHistory, i)
			}
			if !pending[m.ToolCallID] {
				return fmt.Errorf("%w: tool message %d answers unknown call %q", ErrInvalidHistory, i, m.ToolCallID)
			}
			delete(pending, m.ToolCallID)
		default:
			return fmt.Errorf("%w: message %d has unsupported role %q", ErrInvalidHistory, i, m.Role)
		}
	}
	return nil
}
