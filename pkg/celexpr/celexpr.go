// Package celexpr compiles CEL expressions into boolean predicates for
// stream filters. See https://github.com/google/cel-spec for the language.
//
// Every variable is declared dyn; bindings may hold Go primitives, slices
// and maps with string keys.
package celexpr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

var (
	ErrCompile    = errors.New("cel compile")
	ErrNotBool    = errors.New("cel expression is not boolean")
	ErrEvaluate   = errors.New("cel evaluate")
	ErrNoVariable = errors.New("cel expression declares no variables")
)

// Program is a compiled, type-checked predicate. It is safe for concurrent use.
type Program struct {
	source string
	vars   []string
	prg    cel.Program
}

// Compile parses and checks expr with the given variable names.
func Compile(expr string, vars ...string) (*Program, error) {
	if len(vars) == 0 {
		return nil, ErrNoVariable
	}
	opts := make([]cel.EnvOption, len(vars))
	for i, v := range vars {
		opts[i] = cel.Variable(v, cel.DynType)
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrCompile, err)
	}

	parsed, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: parsing %q: %w", ErrCompile, expr, iss.Err())
	}
	checked, iss := env.Check(parsed)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: checking %q: %w", ErrCompile, expr, iss.Err())
	}
	if out := checked.OutputType().String(); out != "bool" && out != "dyn" {
		return nil, fmt.Errorf("%w: %q yields %s", ErrNotBool, expr, out)
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("%w: generating program %q: %w", ErrCompile, expr, err)
	}
	return &Program{source: expr, vars: vars, prg: prg}, nil
}

// Source is the expression text; it identifies the program for node sharing.
func (p *Program) Source() string { return p.source }

// Key is the source plus the declared variables.
func (p *Program) Key() string { return p.source + "|" + strings.Join(p.vars, ",") }

func (p *Program) Eval(bindings map[string]any) (bool, error) {
	val, _, err := p.prg.Eval(bindings)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrEvaluate, p.source, err)
	}
	b, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T", ErrNotBool, p.source, val.Value())
	}
	return b, nil
}
