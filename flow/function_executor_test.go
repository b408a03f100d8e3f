package flow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/tool"
)

type teMockTool struct {
	name     string
	delay    time.Duration
	result   any
	err      error
	panicMsg any
	params   map[string]any
	active   *int32
	peak     *int32
	calls    int32
}

func (mt *teMockTool) Name() string        { return mt.name }
func (mt *teMockTool) Description() string { return "mock tool" }
func (mt *teMockTool) Parameters() map[string]any {
	if mt.params != nil {
		return mt.params
	}
	return map[string]any{"type": "object"}
}
func (mt *teMockTool) Call(ctx context.Context, _ map[string]any) (any, error) {
	atomic.AddInt32(&mt.calls, 1)
	if mt.active != nil {
		n := atomic.AddInt32(mt.active, 1)
		defer atomic.AddInt32(mt.active, -1)
		for {
			p := atomic.LoadInt32(mt.peak)
			if n <= p || atomic.CompareAndSwapInt32(mt.peak, p, n) {
				break
			}
		}
	}
	if mt.delay > 0 {
		select {
		case <-time.After(mt.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if mt.panicMsg != nil {
		panic(mt.panicMsg)
	}
	return mt.result, mt.err
}

func registry(t *testing.T, tools ...tool.Tool) *tool.Registry {
	t.Helper()
	r, err := tool.NewRegistry(tools...)
	require.NoError(t, err)
	return r
}

func call(id, name string) core.ToolCall {
	return core.ToolCall{ID: id, Name: name, Arguments: []byte("{}")}
}

func TestExecutor_Single(t *testing.T) {
	reg := registry(t, &teMockTool{name: "one", result: 42})
	outs := NewExecutor(ExecutorConfig{MaxParallel: 4}).Execute(context.Background(), reg, []core.ToolCall{call("1", "one")})

	require.Len(t, outs, 1)
	assert.NoError(t, outs[0].Err)
	assert.Equal(t, "42", outs[0].Result)

	msg := outs[0].Message()
	assert.Equal(t, core.RoleTool, msg.Role)
	assert.Equal(t, "1", msg.ToolCallID)
	assert.Equal(t, "one", msg.Name)
}

func TestExecutor_ParallelPreservesOrder(t *testing.T) {
	reg := registry(t,
		&teMockTool{name: "slow", delay: 60 * time.Millisecond, result: "s"},
		&teMockTool{name: "fast", delay: 5 * time.Millisecond, result: "f"},
	)
	start := time.Now()
	outs := NewExecutor(ExecutorConfig{MaxParallel: 2}).Execute(context.Background(), reg,
		[]core.ToolCall{call("1", "slow"), call("2", "fast")})
	elapsed := time.Since(start)

	require.Len(t, outs, 2)
	assert.Equal(t, "1", outs[0].Call.ID)
	assert.Equal(t, "s", outs[0].Result)
	assert.Equal(t, "2", outs[1].Call.ID)
	assert.Equal(t, "f", outs[1].Result)
	if elapsed > 110*time.Millisecond {
		t.Fatalf("expected parallel speedup, elapsed=%v", elapsed)
	}
}

func TestExecutor_SerializedByDefault(t *testing.T) {
	var active, peak int32
	reg := registry(t,
		&teMockTool{name: "a", delay: 10 * time.Millisecond, active: &active, peak: &peak},
		&teMockTool{name: "b", delay: 10 * time.Millisecond, active: &active, peak: &peak},
	)
	outs := NewExecutor(ExecutorConfig{}).Execute(context.Background(), reg,
		[]core.ToolCall{call("1", "a"), call("2", "b"), call("3", "a")})

	require.Len(t, outs, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestExecutor_BoundedParallelism(t *testing.T) {
	var active, peak int32
	reg := registry(t, &teMockTool{name: "w", delay: 20 * time.Millisecond, active: &active, peak: &peak})
	calls := []core.ToolCall{call("1", "w"), call("2", "w"), call("3", "w"), call("4", "w"), call("5", "w")}

	outs := NewExecutor(ExecutorConfig{MaxParallel: 2}).Execute(context.Background(), reg, calls)

	require.Len(t, outs, 5)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	for i, o := range outs {
		assert.Equal(t, calls[i].ID, o.Call.ID)
	}
}

func TestExecutor_ErrorIsolation(t *testing.T) {
	reg := registry(t,
		&teMockTool{name: "ok", result: "fine"},
		&teMockTool{name: "bad", err: errors.New("boom")},
	)
	outs := NewExecutor(ExecutorConfig{MaxParallel: 2}).Execute(context.Background(), reg,
		[]core.ToolCall{call("1", "ok"), call("2", "bad")})

	assert.NoError(t, outs[0].Err)
	assert.Error(t, outs[1].Err)
	assert.Equal(t, "error: boom", outs[1].Result)

	assert.False(t, outs[0].Message().IsError)
	failed := outs[1].Message()
	assert.True(t, failed.IsError)
	assert.Equal(t, core.RoleTool, failed.Role)
	assert.Equal(t, "2", failed.ToolCallID)
}

func TestOutcome_MessageFlagsOnlyFailures(t *testing.T) {
	ok := Outcome{Call: call("1", "lookup"), Result: "error: none of the slots are free"}
	assert.False(t, ok.Message().IsError, "content alone never marks a failure")

	failed := Outcome{Call: call("2", "lookup"), Result: ErrorResult(errors.New("boom")), Err: errors.New("boom")}
	assert.True(t, failed.Message().IsError)
}

func TestExecutor_UnknownTool(t *testing.T) {
	reg := registry(t, &teMockTool{name: "known"})
	outs := NewExecutor(ExecutorConfig{}).Execute(context.Background(), reg, []core.ToolCall{call("x", "nonexistent_tool")})

	var unknown *core.UnknownToolError
	require.ErrorAs(t, outs[0].Err, &unknown)
	assert.Equal(t, []string{"known"}, unknown.Available)
	assert.Contains(t, outs[0].Result, "nonexistent_tool")
}

func TestExecutor_ValidationFailureSkipsExecutor(t *testing.T) {
	var calls int32
	strict := tool.Define("strict", "needs x", map[string]any{
		"type":       "object",
		"properties": map[string]any{"x": map[string]any{"type": "string"}},
		"required":   []string{"x"},
	}, func(context.Context, map[string]any) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "ran", nil
	})
	reg := registry(t, strict)

	outs := NewExecutor(ExecutorConfig{}).Execute(context.Background(), reg,
		[]core.ToolCall{{ID: "1", Name: "strict", Arguments: []byte(`{"x": 3}`)}})

	var argErr *core.ToolArgumentError
	require.ErrorAs(t, outs[0].Err, &argErr)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestExecutor_MalformedArguments(t *testing.T) {
	reg := registry(t, &teMockTool{name: "t"})
	outs := NewExecutor(ExecutorConfig{}).Execute(context.Background(), reg,
		[]core.ToolCall{{ID: "1", Name: "t", Arguments: []byte(`[1,2]`)}})

	var argErr *core.ToolArgumentError
	assert.ErrorAs(t, outs[0].Err, &argErr)
}

func TestExecutor_PanicRecovery(t *testing.T) {
	reg := registry(t, &teMockTool{name: "panic", panicMsg: "boom"})
	outs := NewExecutor(ExecutorConfig{}).Execute(context.Background(), reg, []core.ToolCall{call("1", "panic")})

	var execErr *core.ToolExecutionError
	require.ErrorAs(t, outs[0].Err, &execErr)
	assert.Contains(t, outs[0].Result, "panic recovered")
}

func TestExecutor_Canceled(t *testing.T) {
	reg := registry(t, &teMockTool{name: "t", result: "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outs := NewExecutor(ExecutorConfig{}).Execute(ctx, reg, []core.ToolCall{call("1", "t"), call("2", "t")})
	require.Len(t, outs, 2)
	for _, o := range outs {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestExecutor_ValidatesHandWrittenTools(t *testing.T) {
	mt := &teMockTool{name: "typed", params: map[string]any{
		"type":       "object",
		"properties": map[string]any{"n": map[string]any{"type": "integer"}},
		"required":   []any{"n"},
	}}
	reg := registry(t, mt)

	outs := NewExecutor(ExecutorConfig{}).Execute(context.Background(), reg,
		[]core.ToolCall{{ID: "1", Name: "typed", Arguments: []byte(`{}`)}})

	var argErr *core.ToolArgumentError
	require.ErrorAs(t, outs[0].Err, &argErr)
	assert.Contains(t, outs[0].Result, "VALIDATION_ERROR")
	assert.Zero(t, atomic.LoadInt32(&mt.calls))
}
