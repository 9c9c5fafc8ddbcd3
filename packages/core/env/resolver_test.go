package env

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverResolve(t *testing.T) {
	t.Setenv("MOCHA_TEST_HOST", "env.example.com")

	tests := []struct {
		name      string
		input     string
		variables map[string]string
		expected  string
	}{
		{
			name:     "no variables",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:      "simple variable",
			input:     "hello {{name}}",
			variables: map[string]string{"name": "world"},
			expected:  "hello world",
		},
		{
			name:      "whitespace inside braces",
			input:     "{{ baseUrl }}/ping",
			variables: map[string]string{"baseUrl": "https://api.example.com"},
			expected:  "https://api.example.com/ping",
		},
		{
			name:      "multiple variables",
			input:     "{{greeting}} {{name}}!",
			variables: map[string]string{"greeting": "Hello", "name": "World"},
			expected:  "Hello World!",
		},
		{
			name:     "os environment",
			input:    "https://{{$MOCHA_TEST_HOST}}/",
			expected: "https://env.example.com/",
		},
		{
			name:     "builtin function",
			input:    "{{base64('a')}}",
			expected: "YQ==",
		},
		{
			name:     "unresolved stays as-is",
			input:    "hello {{unknown}}",
			expected: "hello {{unknown}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.SetVariables(tt.variables)
			assert.Equal(t, tt.expected, r.Resolve(tt.input))
		})
	}
}

func TestResolverWarnsOnUnresolved(t *testing.T) {
	r := NewResolver()
	var warnings []string
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	r.Resolve("{{missing}} {{nope()}}")
	assert.Equal(t, []string{"unresolved variable: missing", "unresolved function call: nope()"}, warnings)
}

func TestResolverUnresolvedVariables(t *testing.T) {
	r := NewResolver()
	r.SetVariable("bar", "middle")

	assert.Nil(t, r.UnresolvedVariables("hello world"))
	assert.Equal(t, []string{"foo", "baz"}, r.UnresolvedVariables("{{foo}} and {{bar}} and {{baz}} {{uuid()}}"))
}

func TestResolverCloneAndReset(t *testing.T) {
	r := NewResolver()
	r.SetVariable("a", "1")

	clone := r.Clone()
	clone.SetVariable("b", "2")
	r.Reset()

	_, ok := r.GetVariable("a")
	assert.False(t, ok)
	v, ok := clone.GetVariable("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = r.GetVariable("b")
	assert.False(t, ok)
}
