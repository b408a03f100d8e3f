package flow

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/internal/util"
	"github.com/NikhilKumarMandal/multi-agent-system/logging"
	"github.com/NikhilKumarMandal/multi-agent-system/model"
	"github.com/NikhilKumarMandal/multi-agent-system/tool"
)

const tracerName = "github.com/NikhilKumarMandal/multi-agent-system/flow"

// Outcome is the result of one tool call. Err is nil on success; otherwise
// Result holds the error text that is fed back to the model.
type Outcome struct {
	Call     core.ToolCall
	Result   string
	Err      error
	Duration time.Duration
}

// Message renders the outcome as the tool message answering its call.
func (o Outcome) Message() core.Message {
	if o.Err != nil {
		return core.NewToolErrorMessage(o.Call.ID, o.Call.Name, o.Result)
	}
	return core.NewToolResultMessage(o.Call.ID, o.Call.Name, o.Result)
}

// ExecutorConfig configures the executor.
type ExecutorConfig struct {
	// MaxParallel bounds concurrent tool executions within one cycle.
	// Values < 1 are treated as 1 (serialized).
	MaxParallel    int
	LogStartEvents bool // log a start line per call
	Agent          string
	Logger         logging.Logger
}

// Executor runs the tool calls of one cycle. It never panics and always
// returns exactly one Outcome per call, in call order, regardless of the
// order in which executions finish.
type Executor struct {
	cfg    ExecutorConfig
	tracer trace.Tracer
}

// NewExecutor constructs an Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	return &Executor{cfg: cfg, tracer: otel.Tracer(tracerName)}
}

// Execute validates and runs calls against registry. Unknown tools,
// undecodable arguments, validation failures, execution errors and panics
// all become error outcomes; none of them abort the batch.
func (e *Executor) Execute(ctx context.Context, registry *tool.Registry, calls []core.ToolCall) []Outcome {
	n := len(calls)
	if n == 0 {
		return nil
	}

	outcomes := make([]Outcome, n)

	// Fast path: single call or serialized execution runs inline.
	if n == 1 || e.cfg.MaxParallel == 1 {
		for i, c := range calls {
			outcomes[i] = e.executeOne(ctx, registry, c)
		}
		e.logBatch(n, 1)
		return outcomes
	}

	maxPar := e.cfg.MaxParallel
	if maxPar > n {
		maxPar = n
	}

	var g errgroup.Group
	g.SetLimit(maxPar)

	for i := range calls {
		idx, c := i, calls[i]
		g.Go(func() error {
			outcomes[idx] = e.executeOne(ctx, registry, c)
			return nil
		})
	}
	_ = g.Wait() // executeOne never returns an error

	e.logBatch(n, maxPar)
	return outcomes
}

func (e *Executor) logBatch(n, parallelism int) {
	e.cfg.Logger.Debug(
		"agent.tools.batch.complete",
		"agent", e.cfg.Agent,
		"count", n,
		"parallelism", parallelism,
	)
}

func (e *Executor) executeOne(ctx context.Context, registry *tool.Registry, call core.ToolCall) (out Outcome) {
	out.Call = call

	ctx, span := e.tracer.Start(ctx, "agent.tool.execute", trace.WithAttributes(
		attribute.String("agent.name", e.cfg.Agent),
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer span.End()

	if e.cfg.LogStartEvents {
		e.cfg.Logger.Info("agent.tool.start", "agent", e.cfg.Agent, "tool", call.Name, "tool_call_id", call.ID)
	}

	start := time.Now()
	var (
		result any
		err    error
	)
	if cerr := ctx.Err(); cerr != nil {
		err = cerr
	} else {
		func() { // panic safety
			defer func() {
				if r := recover(); r != nil {
					err = &core.ToolExecutionError{Tool: call.Name, Err: panicError(r)}
					e.cfg.Logger.Error("agent.tool.panic", "agent", e.cfg.Agent, "tool", call.Name, "recover", r)
				}
			}()
			result, err = executeTool(ctx, registry, call)
		}()
	}
	out.Duration = time.Since(start)

	if err == nil {
		out.Result, err = tool.FormatResult(result)
		if err != nil {
			err = &core.ToolExecutionError{Tool: call.Name, Err: err}
		}
	}

	if err != nil {
		out.Err = err
		out.Result = ErrorResult(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	e.cfg.Logger.Info(
		"agent.tool.executed",
		"agent", e.cfg.Agent,
		"tool", call.Name,
		"tool_call_id", call.ID,
		"duration_ms", out.Duration.Milliseconds(),
		"error", err != nil,
	)

	return out
}

// ErrorResult is the tool-result text reported to the model for a failed call.
func ErrorResult(err error) string {
	return "error: " + err.Error()
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }

// executeTool centralizes tool lookup, argument decoding, schema validation
// and execution. The executor never runs for arguments that fail the schema.
func executeTool(ctx context.Context, registry *tool.Registry, call core.ToolCall) (any, error) {
	impl, ok := registry.Lookup(call.Name)
	if !ok {
		return nil, &core.UnknownToolError{Name: call.Name, Available: registry.Names()}
	}

	args, err := model.DecodeArguments(call.Arguments)
	if err != nil {
		return nil, &core.ToolArgumentError{Tool: call.Name, Err: fmt.Errorf("arguments are not a JSON object: %w", err)}
	}

	if err := util.ValidateParameters(args, impl.Parameters()); err != nil {
		return nil, &tool.ToolError{
			Tool:    call.Name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    tool.CodeValidation,
			Details: err,
			Err:     &core.ToolArgumentError{Tool: call.Name, Err: err},
		}
	}

	return impl.Call(ctx, args)
}
