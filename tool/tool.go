// Package tool implements the tool calling subsystem that lets agents invoke
// structured capabilities with schema validated arguments, consistent error
// handling and descriptions the model uses to pick a tool.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NikhilKumarMandal/multi-agent-system/internal/util"
)

// Tool is a named capability the model may request.
//
// Implementations must be safe for concurrent use: the executor may run
// several calls of the same tool in parallel when the agent allows it.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case recommended).
	Name() string

	// Description returns the text shown to the model to decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input object.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments. Implementations are
	// expected to validate args against Parameters before acting.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes used by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
	Err     error  `json:"-"`                 // Underlying classified error, if any
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// FormatResult renders a tool return value as the text stored in a tool
// message. Strings pass through; everything else is JSON encoded.
func FormatResult(v any) (string, error) {
	switch r := v.(type) {
	case nil:
		return "", nil
	case string:
		return r, nil
	case []byte:
		return string(r), nil
	case fmt.Stringer:
		return r.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}
