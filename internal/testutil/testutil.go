// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/tool"
)

// Roles lists the role of every message in order.
func Roles(msgs []core.Message) []core.Role {
	out := make([]core.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

// ToolMessages returns the tool messages of msgs in order.
func ToolMessages(msgs []core.Message) []core.Message {
	var out []core.Message
	for _, m := range msgs {
		if m.Role == core.RoleTool {
			out = append(out, m)
		}
	}
	return out
}

// CountingTool returns a tool that answers "<name> call #n" and counts its
// invocations. It accepts any object.
func CountingTool(name string, counter *int32) tool.Tool {
	return tool.Define(name, "test tool "+name, nil, func(context.Context, map[string]any) (any, error) {
		n := atomic.AddInt32(counter, 1)
		return fmt.Sprintf("%s call #%d", name, n), nil
	})
}

// History builds a valid three-turn history with one tool exchange. The
// call arguments keep the spacing a model typically emits.
func History() []core.Message {
	return []core.Message{
		core.NewUserMessage("hello"),
		core.NewToolCallMessage("", []core.ToolCall{{ID: "c1", Name: "lookup", Arguments: []byte(`{"q": "x", "limit": 2}`)}}),
		core.NewToolResultMessage("c1", "lookup", "found x"),
		core.NewAssistantMessage("x it is"),
	}
}
