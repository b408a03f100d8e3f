package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

// ErrScriptExhausted is returned by ScriptedGateway when no step is left.
var ErrScriptExhausted = errors.New("scripted gateway: no more completions")

// ScriptStep is one queued gateway reaction: a completion or an error.
type ScriptStep struct {
	Completion *Completion
	Err        error
}

// ScriptedGateway is a deterministic Gateway that replays queued steps and
// records every request it receives. When Repeat is set, the last step is
// replayed forever once the queue is drained.
type ScriptedGateway struct {
	mu       sync.Mutex
	info     Info
	steps    []ScriptStep
	requests []Request
	repeat   bool
}

// NewScriptedGateway creates a gateway replaying steps in order.
func NewScriptedGateway(steps ...ScriptStep) *ScriptedGateway {
	return &ScriptedGateway{
		info:  Info{Name: "scripted", Provider: "scripted", SupportsTools: true},
		steps: steps,
	}
}

// Repeat makes the gateway replay its last step indefinitely.
func (g *ScriptedGateway) Repeat() *ScriptedGateway {
	g.mu.Lock()
	g.repeat = true
	g.mu.Unlock()
	return g
}

// Push appends steps to the queue.
func (g *ScriptedGateway) Push(steps ...ScriptStep) {
	g.mu.Lock()
	g.steps = append(g.steps, steps...)
	g.mu.Unlock()
}

// Complete implements Gateway.
func (g *ScriptedGateway) Complete(ctx context.Context, req Request) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, Request{
		SystemPrompt: req.SystemPrompt,
		History:      core.CloneMessages(req.History),
		Tools:        append([]ToolDefinition(nil), req.Tools...),
	})

	idx := len(g.requests) - 1
	if idx >= len(g.steps) {
		if !g.repeat || len(g.steps) == 0 {
			return nil, ErrScriptExhausted
		}
		idx = len(g.steps) - 1
	}

	step := g.steps[idx]
	if step.Err != nil {
		return nil, step.Err
	}
	if step.Completion == nil {
		return nil, ErrScriptExhausted
	}

	c := *step.Completion
	c.ToolCalls = core.CloneToolCalls(step.Completion.ToolCalls)
	return &c, nil
}

// Info implements Gateway.
func (g *ScriptedGateway) Info() Info { return g.info }

// Requests returns copies of all recorded requests.
func (g *ScriptedGateway) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Request, len(g.requests))
	copy(out, g.requests)
	return out
}

// Calls returns the number of Complete invocations so far.
func (g *ScriptedGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Answer builds a final-answer step.
func Answer(text string) ScriptStep {
	return ScriptStep{Completion: &Completion{Text: text, FinishReason: "stop"}}
}

// CallTools builds a tool-request step from calls.
func CallTools(calls ...core.ToolCall) ScriptStep {
	return ScriptStep{Completion: &Completion{ToolCalls: calls, FinishReason: "tool_calls"}}
}

// Fail builds an error step.
func Fail(err error) ScriptStep { return ScriptStep{Err: err} }

// Call builds a ToolCall with JSON encoded args. It panics if args cannot
// be encoded, which only happens with programmer error in test fixtures.
func Call(id, name string, args any) core.ToolCall {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(fmt.Sprintf("model.Call: encode args: %v", err))
	}
	return core.ToolCall{ID: id, Name: name, Arguments: raw}
}

var _ Gateway = (*ScriptedGateway)(nil)
