package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/internal/testutil"
	"github.com/NikhilKumarMandal/multi-agent-system/model"
	"github.com/NikhilKumarMandal/multi-agent-system/tool"
)

func TestAsTool_Schema(t *testing.T) {
	sub := newAgent(t, model.NewScriptedGateway())
	st := AsTool(sub, "delegate", "Delegate work", func(o *SubAgentOptions) {
		o.RequestDescription = "What to do"
	})

	assert.Equal(t, "delegate", st.Name())
	assert.Equal(t, "Delegate work", st.Description())

	params := st.Parameters()
	assert.Equal(t, []string{"request"}, params["required"])
	req := params["properties"].(map[string]any)["request"].(map[string]any)
	assert.Equal(t, "string", req["type"])
	assert.Equal(t, "What to do", req["description"])
}

func TestAsTool_ReturnsOnlyFinalAnswer(t *testing.T) {
	var n int32
	subGW := model.NewScriptedGateway(
		model.CallTools(model.Call("s1", "inner", map[string]any{})),
		model.Answer("Event created: review"),
	)
	sub := newAgent(t, subGW, withTools(testutil.CountingTool("inner", &n)))

	parentGW := model.NewScriptedGateway(
		model.CallTools(model.Call("p1", "schedule", map[string]any{"request": "design review tomorrow 2pm"})),
		model.Answer("Scheduled."),
	)
	parent := newAgent(t, parentGW, withTools(AsTool(sub, "schedule", "Schedule things")))

	res, err := parent.Ask(context.Background(), "Schedule a design review")
	require.NoError(t, err)

	assert.Equal(t, "Scheduled.", res.Answer)
	results := testutil.ToolMessages(res.History)
	require.Len(t, results, 1)
	assert.Equal(t, "Event created: review", results[0].Content)
	assert.Equal(t, "p1", results[0].ToolCallID)

	// The sub-run started from a fresh history with exactly the request.
	first := subGW.Requests()[0]
	require.Len(t, first.History, 1)
	assert.Equal(t, core.RoleUser, first.History[0].Role)
	assert.Equal(t, "design review tomorrow 2pm", first.History[0].Content)

	// None of the sub-agent's tool traffic leaked into the parent.
	for _, m := range res.History {
		for _, c := range m.ToolCalls {
			assert.NotEqual(t, "inner", c.Name)
		}
	}
}

func TestAsTool_SubRunFailureIsToolError(t *testing.T) {
	sub := newAgent(t, model.NewScriptedGateway(model.Fail(&core.ModelProtocolError{Reason: "bad"})))

	parentGW := model.NewScriptedGateway(
		model.CallTools(model.Call("p1", "delegate", map[string]any{"request": "x"})),
		model.Answer("the helper failed"),
	)
	parent := newAgent(t, parentGW, withTools(AsTool(sub, "delegate", "d")))

	res, err := parent.Ask(context.Background(), "x")
	require.NoError(t, err)
	results := testutil.ToolMessages(res.History)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "EXECUTION_ERROR")
	assert.Contains(t, results[0].Content, "model protocol error")
}

func TestAsTool_DepthGuard(t *testing.T) {
	sub := newAgent(t, model.NewScriptedGateway(model.Answer("ran")))
	st := AsTool(sub, "delegate", "d", func(o *SubAgentOptions) { o.MaxDepth = 1 })

	out, err := st.Call(context.Background(), map[string]any{"request": "a"})
	require.NoError(t, err)
	assert.Equal(t, "ran", out)

	_, err = st.Call(withDepth(context.Background(), 1), map[string]any{"request": "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDelegationDepth)
	var toolErr *tool.ToolError
	assert.True(t, errors.As(err, &toolErr))
}

func TestAsTool_RecursiveDelegationIsBounded(t *testing.T) {
	// An agent that always delegates to itself through the adapter.
	gw := model.NewScriptedGateway(
		model.CallTools(model.Call("r", "recurse", map[string]any{"request": "again"})),
	).Repeat()

	var self *Agent
	var calls int32
	proxy := tool.Define("recurse", "recurse", map[string]any{
		"type":       "object",
		"properties": map[string]any{"request": map[string]any{"type": "string"}},
		"required":   []string{"request"},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		atomic.AddInt32(&calls, 1)
		return AsTool(self, "recurse", "recurse", func(o *SubAgentOptions) { o.MaxDepth = 2 }).Call(ctx, args)
	})

	self = newAgent(t, gw, withTools(proxy), func(o *Options) { o.MaxSteps = 2 })

	res, err := self.Ask(context.Background(), "start")
	require.NoError(t, err)
	assert.Equal(t, StopStepLimit, res.StopReason)
	assert.Greater(t, atomic.LoadInt32(&calls), int32(0))
}

func TestDepthFromContext(t *testing.T) {
	assert.Equal(t, 0, DepthFromContext(context.Background()))
	assert.Equal(t, 2, DepthFromContext(withDepth(context.Background(), 2)))
}
