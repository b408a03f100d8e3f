package agent

import (
	"context"
	"fmt"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/logging"
	"github.com/NikhilKumarMandal/multi-agent-system/tool"
)

// DefaultMaxDepth bounds nested delegation through sub-agent tools.
const DefaultMaxDepth = 3

type depthKey struct{}

// DepthFromContext returns the delegation depth carried by ctx (0 at the top level).
func DepthFromContext(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}

func withDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// SubAgentOptions configures AsTool.
type SubAgentOptions struct {
	// MaxDepth is the deepest delegation level allowed to start a sub-run.
	MaxDepth int
	// RequestDescription documents the single request argument to the model.
	RequestDescription string
	Logger             logging.Logger
}

// delegateArgs is the parameter schema of every sub-agent tool.
type delegateArgs struct {
	Request string `json:"request" description:"Natural-language description of the task to delegate"`
}

// AsTool exposes a as a tool with schema {request: string}. Each call runs a
// on a fresh history holding only the request and returns its final answer;
// intermediate tool traffic never leaves the sub-run and nothing is persisted.
//
// Loop-fatal errors of the sub-run become tool execution errors of the
// parent. Calls beyond MaxDepth fail with core.ErrDelegationDepth without
// running a.
func AsTool(a *Agent, name, description string, optFns ...func(o *SubAgentOptions)) tool.Tool {
	opts := SubAgentOptions{
		MaxDepth: DefaultMaxDepth,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	t := tool.DefineTyped(name, description, func(ctx context.Context, in delegateArgs) (string, error) {
		depth := DepthFromContext(ctx)
		if depth >= opts.MaxDepth {
			opts.Logger.Warn("agent.delegate.depth_exceeded", "tool", name, "agent", a.Name(), "depth", depth, "max_depth", opts.MaxDepth)
			return "", &tool.ToolError{
				Tool:    name,
				Message: fmt.Sprintf("%v: depth %d reached the limit of %d", core.ErrDelegationDepth, depth, opts.MaxDepth),
				Code:    tool.CodeExecution,
				Err:     &core.ToolExecutionError{Tool: name, Err: core.ErrDelegationDepth},
			}
		}

		opts.Logger.Debug("agent.delegate.start", "tool", name, "agent", a.Name(), "depth", depth+1)

		res, err := a.Ask(withDepth(ctx, depth+1), in.Request)
		if err != nil {
			return "", fmt.Errorf("sub-agent %s failed: %w", a.Name(), err)
		}

		opts.Logger.Debug("agent.delegate.complete", "tool", name, "agent", a.Name(), "steps", res.Steps, "stop_reason", res.StopReason)
		return res.Answer, nil
	}, tool.WithFunctionLogger(opts.Logger))

	if opts.RequestDescription != "" {
		if props, ok := t.Parameters()["properties"].(map[string]any); ok {
			if req, ok := props["request"].(map[string]any); ok {
				req["description"] = opts.RequestDescription
			}
		}
	}

	return t
}
