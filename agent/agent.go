package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/flow"
	"github.com/NikhilKumarMandal/multi-agent-system/logging"
	"github.com/NikhilKumarMandal/multi-agent-system/model"
	"github.com/NikhilKumarMandal/multi-agent-system/tool"
)

const tracerName = "github.com/NikhilKumarMandal/multi-agent-system/agent"

// Stop reasons reported in Result.StopReason.
const (
	StopFinalAnswer = "final_answer"
	StopStepLimit   = "step_limit"
)

// DefaultMaxSteps bounds the number of cycles of one run.
const DefaultMaxSteps = 25

// RetryPolicy bounds retries of transient gateway failures.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns 3 tries starting at 200ms, capped at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxTries: 3, InitialInterval: 200 * time.Millisecond, MaxInterval: 2 * time.Second}
}

// Options configures an Agent. Use functional options with New to override
// defaults.
type Options struct {
	Instruction Instruction
	// Tools in declaration order; names must be unique and non-empty.
	Tools []tool.Tool
	// MaxSteps caps the cycles of one run. Values < 1 select DefaultMaxSteps.
	MaxSteps int
	// MaxParallelTools bounds concurrent tool calls of one cycle (1 = serialized).
	MaxParallelTools int
	Retry            RetryPolicy
	// StepLimitAnswer is the final answer recorded when the guard trips.
	// It may contain one %d verb for the limit.
	StepLimitAnswer string
	// LogToolStarts emits agent.tool.start before each tool call in
	// addition to the completion line.
	LogToolStarts bool
	Logger        logging.Logger
}

// Result is the outcome of a run that reached DONE.
type Result struct {
	// Answer is the final assistant text (the step-limit answer when the guard tripped).
	Answer string
	// History is the full updated conversation.
	History []core.Message
	// NewMessages is the tail of History appended by this run.
	NewMessages []core.Message
	// Steps is the number of gateway cycles performed.
	Steps      int
	StopReason string
	// Err is a *core.StepLimitExceededError when StopReason is StopStepLimit.
	Err   error
	Usage model.TokenUsage
}

// Agent drives the tool-calling loop for one {instruction, tools, gateway}
// configuration. It is immutable after New and safe for concurrent Runs;
// every Run owns its own history.
type Agent struct {
	*core.LoggerAdapter
	name            string
	gateway         model.Gateway
	instruction     Instruction
	registry        *tool.Registry
	definitions     []model.ToolDefinition
	maxSteps        int
	retry           RetryPolicy
	stepLimitAnswer string
	executor        *flow.Executor
	tracer          trace.Tracer
}

// New creates an Agent. Configuration errors (empty name, nil gateway,
// duplicate or empty tool names) wrap core.ErrConfig.
func New(name string, gateway model.Gateway, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		Instruction:      NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		MaxSteps:         DefaultMaxSteps,
		MaxParallelTools: 1,
		Retry:            DefaultRetryPolicy(),
		StepLimitAnswer:  "I could not finish this request: exceeded the step limit of %d cycles.",
		Logger:           logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: agent name is empty", core.ErrConfig)
	}
	if gateway == nil {
		return nil, fmt.Errorf("%w: agent %q has no model gateway", core.ErrConfig, name)
	}

	registry, err := tool.NewRegistry(opts.Tools...)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", name, err)
	}

	if opts.MaxSteps < 1 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Retry.MaxTries == 0 {
		opts.Retry.MaxTries = 1
	}

	definitions := make([]model.ToolDefinition, 0, registry.Len())
	for _, t := range registry.Tools() {
		definitions = append(definitions, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	logger := core.NewLoggerAdapter(opts.Logger)

	return &Agent{
		LoggerAdapter:   logger,
		name:            name,
		gateway:         gateway,
		instruction:     opts.Instruction,
		registry:        registry,
		definitions:     definitions,
		maxSteps:        opts.MaxSteps,
		retry:           opts.Retry,
		stepLimitAnswer: opts.StepLimitAnswer,
		executor: flow.NewExecutor(flow.ExecutorConfig{
			MaxParallel:    opts.MaxParallelTools,
			LogStartEvents: opts.LogToolStarts,
			Agent:          name,
			Logger:         logger.Logger(),
		}),
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Tools returns the agent's tool definitions in declaration order.
func (a *Agent) Tools() []model.ToolDefinition {
	out := make([]model.ToolDefinition, len(a.definitions))
	copy(out, a.definitions)
	return out
}

// MaxSteps returns the configured cycle limit.
func (a *Agent) MaxSteps() int { return a.maxSteps }

// Ask runs the agent on a fresh history containing only text as a user message.
func (a *Agent) Ask(ctx context.Context, text string) (*Result, error) {
	return a.Run(ctx, []core.Message{core.NewUserMessage(text)})
}

// Run drives the loop over a copy of history until a final answer or the
// step limit. Both exits return a Result and a nil error.
//
// A non-nil error is loop-fatal and no Result is returned: a protocol
// error, exhausted retries of an unavailable gateway, an instruction
// failure, or cancellation of ctx. Callers must not persist anything in
// that case.
func (a *Agent) Run(ctx context.Context, history []core.Message) (res *Result, err error) {
	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.name", a.name),
		attribute.Int("agent.max_steps", a.maxSteps),
		attribute.Int("agent.history_len", len(history)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("agent.stop_reason", res.StopReason),
				attribute.Int("agent.steps", res.Steps),
			)
		}
		span.End()
	}()

	start := time.Now()
	a.LogDebug("agent.run.start", "agent", a.name, "history_len", len(history))

	prompt, err := a.instruction.Resolve(ctx)
	if err != nil {
		a.LogError("agent.instruction.error", "agent", a.name, "error", err.Error())
		return nil, fmt.Errorf("agent %q: resolve instruction: %w", a.name, err)
	}

	msgs := core.CloneMessages(history)
	offset := len(msgs)
	limiter := core.NewStepLimiter(a.maxSteps)
	var usage model.TokenUsage

	finish := func(answer, reason string, stepErr error) *Result {
		msgs = append(msgs, core.NewAssistantMessage(answer))
		a.LogInfo(
			"agent.run.complete",
			"agent", a.name,
			"stop_reason", reason,
			"steps", limiter.Count(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return &Result{
			Answer:      answer,
			History:     msgs,
			NewMessages: msgs[offset:],
			Steps:       limiter.Count(),
			StopReason:  reason,
			Err:         stepErr,
			Usage:       usage,
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			a.LogWarn("agent.run.context_done", "agent", a.name, "error", err.Error())
			return nil, err
		}

		if err := limiter.Acquire(); err != nil {
			a.LogWarn("agent.run.step_limit", "agent", a.name, "limit", a.maxSteps)
			return finish(a.stepLimitText(), StopStepLimit, err), nil
		}

		completion, err := a.complete(ctx, prompt, msgs, limiter.Count())
		if err != nil {
			a.LogError("agent.run.error", "agent", a.name, "step", limiter.Count(), "error", err.Error())
			return nil, err
		}
		usage.Add(completion.Usage)

		if completion.IsFinal() {
			return finish(completion.Text, StopFinalAnswer, nil), nil
		}

		msgs = append(msgs, core.NewToolCallMessage(completion.Text, completion.ToolCalls))

		outcomes := a.executor.Execute(ctx, a.registry, completion.ToolCalls)
		if err := ctx.Err(); err != nil {
			a.LogWarn("agent.run.context_done", "agent", a.name, "error", err.Error())
			return nil, err
		}

		for _, o := range outcomes {
			msgs = append(msgs, o.Message())
		}
	}
}

func (a *Agent) stepLimitText() string {
	if strings.Contains(a.stepLimitAnswer, "%d") {
		return fmt.Sprintf(a.stepLimitAnswer, a.maxSteps)
	}
	return a.stepLimitAnswer
}

// complete performs one gateway exchange, retrying transient failures with
// exponential backoff. Contract violations are never retried.
func (a *Agent) complete(ctx context.Context, prompt string, msgs []core.Message, step int) (*model.Completion, error) {
	ctx, span := a.tracer.Start(ctx, "agent.model.complete", trace.WithAttributes(
		attribute.String("agent.name", a.name),
		attribute.Int("agent.step", step),
		attribute.String("model.provider", a.gateway.Info().Provider),
		attribute.String("model.name", a.gateway.Info().Name),
	))
	defer span.End()

	req := model.Request{
		SystemPrompt: prompt,
		History:      msgs,
		Tools:        a.definitions,
	}

	b := backoff.NewExponentialBackOff()
	if a.retry.InitialInterval > 0 {
		b.InitialInterval = a.retry.InitialInterval
	}
	if a.retry.MaxInterval > 0 {
		b.MaxInterval = a.retry.MaxInterval
	}

	attempt := 0
	operation := func() (*model.Completion, error) {
		attempt++
		callStart := time.Now()

		c, err := a.gateway.Complete(ctx, req)
		if err != nil {
			if core.IsModelUnavailable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		if err := model.CheckCompletion(c, a.definitions); err != nil {
			return nil, backoff.Permanent(err)
		}

		a.LogDebug(
			"agent.model.call",
			"agent", a.name,
			"step", step,
			"attempt", attempt,
			"tool_calls", len(c.ToolCalls),
			"tokens", c.Usage.TotalTokens,
			"duration_ms", time.Since(callStart).Milliseconds(),
		)
		return c, nil
	}

	c, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(a.retry.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.LogWarn("agent.model.retry", "agent", a.name, "step", step, "attempt", attempt, "next_in", next, "error", err.Error())
		}),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("agent %q step %d: %w", a.name, step, err)
	}

	span.SetAttributes(attribute.Int("model.tool_calls", len(c.ToolCalls)), attribute.Int("model.attempts", attempt))
	return c, nil
}
