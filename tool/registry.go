package tool

import (
	"fmt"
	"strings"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

// Registry is an immutable, ordered set of tools with unique names.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry validates and indexes tools. Nil tools, empty names and
// duplicate names are configuration errors wrapping core.ErrConfig.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:  make([]Tool, 0, len(tools)),
		byName: make(map[string]Tool, len(tools)),
	}
	for i, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("%w: tool %d is nil", core.ErrConfig, i)
		}
		name := t.Name()
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: tool %d has an empty name", core.ErrConfig, i)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool name %q", core.ErrConfig, name)
		}
		r.byName[name] = t
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns the tools in declaration order.
func (r *Registry) Tools() []Tool {
	if r == nil {
		return nil
	}
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns tool names in declaration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.Name()
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}
