package env

import (
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/mocha/packages/builtin"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver substitutes {{...}} placeholders. A placeholder is, in lookup order:
// `$NAME` for an OS environment variable, `fn(args)` for a builtin function, or the
// name of a variable of the active environment. Unknown placeholders are left as-is.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]string),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// Reset drops every variable, e.g. when switching environments.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables = make(map[string]string)
}

func (r *Resolver) GetVariable(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

func (r *Resolver) Resolve(input string) string {
	if !strings.Contains(input, "{{") {
		return input
	}
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		value, ok := r.lookup(strings.TrimSpace(match[2 : len(match)-2]))
		if !ok {
			return match
		}
		return value
	})
}

func (r *Resolver) lookup(expr string) (string, bool) {
	if strings.HasPrefix(expr, "$") {
		if val, ok := os.LookupEnv(expr[1:]); ok {
			return val, true
		}
		r.warn("unresolved environment variable: %s", expr)
		return "", false
	}

	if strings.Contains(expr, "(") {
		val, ok, err := r.funcs.Call(expr)
		if err != nil {
			r.warn("function call failed: %v", err)
			return "", false
		}
		if !ok {
			r.warn("unresolved function call: %s", expr)
		}
		return val, ok
	}

	if val, ok := r.GetVariable(expr); ok {
		return val, true
	}
	r.warn("unresolved variable: %s", expr)
	return "", false
}

// UnresolvedVariables lists the placeholders in input that have no value, in order of
// appearance. It does not emit warnings.
func (r *Resolver) UnresolvedVariables(input string) []string {
	var missing []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		switch {
		case strings.HasPrefix(expr, "$"):
			if _, ok := os.LookupEnv(expr[1:]); ok {
				continue
			}
		case strings.Contains(expr, "("):
			continue
		default:
			if _, ok := r.GetVariable(expr); ok {
				continue
			}
		}
		missing = append(missing, expr)
	}
	return missing
}

func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver()
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	clone.warnFunc = r.warnFunc
	return clone
}
