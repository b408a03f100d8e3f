package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig reports an invalid agent or tool configuration detected at
	// construction time (e.g. duplicate tool names).
	ErrConfig = errors.New("invalid configuration")
	// ErrDelegationDepth is returned by a sub-agent tool when nesting exceeds
	// the configured maximum depth.
	ErrDelegationDepth = errors.New("delegation depth exceeded")
	// ErrCheckpointVersion is returned when a persisted checkpoint uses an
	// unknown envelope version.
	ErrCheckpointVersion = errors.New("unsupported checkpoint version")
	// ErrInvalidHistory reports a history violating the tool pairing invariant.
	ErrInvalidHistory = errors.New("invalid message history")
)

// ToolArgumentError reports arguments that failed schema validation or could
// not be decoded. It is fed back to the model as a tool result.
type ToolArgumentError struct {
	Tool string
	Err  error
}

func (e *ToolArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *ToolArgumentError) Unwrap() error { return e.Err }

// UnknownToolError reports a tool name that is not part of the agent's tool set.
type UnknownToolError struct {
	Name      string
	Available []string
}

func (e *UnknownToolError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown tool %q: no tools are available", e.Name)
	}
	return fmt.Sprintf("unknown tool %q; available tools: %s", e.Name, strings.Join(e.Available, ", "))
}

// ToolExecutionError reports a failure of the underlying tool action.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// ModelUnavailableError is a transient gateway failure (rate limit, network,
// server error). The agent loop retries it with bounded backoff.
type ModelUnavailableError struct {
	Provider string
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("model unavailable: %v", e.Err)
	}
	return fmt.Sprintf("model %s unavailable: %v", e.Provider, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// ModelProtocolError is a completion outside the gateway contract. It ends
// the current turn without persisting it.
type ModelProtocolError struct {
	Reason string
	Err    error
}

func (e *ModelProtocolError) Error() string {
	if e.Err == nil {
		return "model protocol error: " + e.Reason
	}
	return fmt.Sprintf("model protocol error: %s: %v", e.Reason, e.Err)
}

func (e *ModelProtocolError) Unwrap() error { return e.Err }

// StepLimitExceededError records that the cycle guard stopped a run.
type StepLimitExceededError struct {
	Limit int
}

func (e *StepLimitExceededError) Error() string {
	return fmt.Sprintf("exceeded step limit of %d cycles", e.Limit)
}

// IsModelUnavailable reports whether err is (or wraps) a ModelUnavailableError.
func IsModelUnavailable(err error) bool {
	var target *ModelUnavailableError
	return errors.As(err, &target)
}

// IsModelProtocol reports whether err is (or wraps) a ModelProtocolError.
func IsModelProtocol(err error) bool {
	var target *ModelProtocolError
	return errors.As(err, &target)
}
