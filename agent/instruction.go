package agent

import (
	"context"

	"github.com/NikhilKumarMandal/multi-agent-system/internal/util"
)

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(ctx context.Context) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(ctx context.Context) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ctx context.Context) (string, error) { return f(ctx) }

// Instruction represents either a static instruction string or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// NewInstructionFromTemplate renders tmpl (text/template syntax) with the
// variables returned by vars on every run.
//
//	NewInstructionFromTemplate("Today is {{.today}}.", func(context.Context) map[string]any {
//	  return map[string]any{"today": time.Now().Format("2006-01-02")}
//	})
func NewInstructionFromTemplate(tmpl string, vars func(ctx context.Context) map[string]any) Instruction {
	return NewInstructionFromFunc(func(ctx context.Context) (string, error) {
		var state map[string]any
		if vars != nil {
			state = vars(ctx)
		}
		return util.RenderTemplate(tmpl, state)
	})
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(ctx context.Context) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx)
	}
	return i.text, nil
}
