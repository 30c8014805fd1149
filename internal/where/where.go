// Package where filters items with CEL expressions such as
// `item.score > 10 && "go" in item.tags`.
package where

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Static errors for err113 compliance.
var (
	ErrNotBoolean = errors.New("expression must evaluate to a boolean")
)

// Predicate is a compiled expression over one item, bound to the variable "item".
type Predicate struct {
	source  string
	program cel.Program
}

// Compile parses and type-checks expr.
func Compile(expr string) (*Predicate, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expr, issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotBoolean, expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build expression %q: %w", expr, err)
	}

	return &Predicate{source: expr, program: program}, nil
}

// Match evaluates the predicate against data. Missing fields make the
// expression fail, which is reported as an error.
func (p *Predicate) Match(data map[string]any) (bool, error) {
	out, _, err := p.program.Eval(map[string]any{"item": data})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate %q: %w", p.source, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T", ErrNotBoolean, p.source, out.Value())
	}

	return matched, nil
}

// String returns the expression.
func (p *Predicate) String() string {
	return p.source
}
