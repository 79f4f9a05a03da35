// Package predicate compiles query filters into CEL programs and evaluates
// them against object fields.
package predicate

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// Compiler compiles filter lists for object matching.
type Compiler struct {
	env *cel.Env
}

// NewCompiler creates a compiler whose expressions see the object fields as
// the map variable "doc".
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Compiler{env: env}, nil
}

// CompileFilters compiles the conjunction of filters. An empty list compiles
// to a nil program, which matches everything.
func (c *Compiler) CompileFilters(filters []model.Filter) (cel.Program, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	var expressions []string
	for _, f := range filters {
		expr, err := filterToExpression(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrInvalidQuery, err)
		}
		expressions = append(expressions, expr)
	}

	prg, err := c.CompileExpression(strings.Join(expressions, " && "))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidQuery, err)
	}
	return prg, nil
}

// CompileExpression compiles a raw CEL expression over "doc".
func (c *Compiler) CompileExpression(expr string) (cel.Program, error) {
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program creation error: %w", err)
	}

	return prg, nil
}

// Evaluate runs prg against the object fields. A missing field makes the
// program fail; callers treat that as no match.
func Evaluate(prg cel.Program, fields model.Document) (bool, error) {
	if prg == nil {
		return true, nil
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"doc": map[string]interface{}(fields),
	})
	if err != nil {
		return false, err
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL result is not boolean: %T", out.Value())
	}

	return result, nil
}

func filterToExpression(f model.Filter) (string, error) {
	valStr, err := formatValue(f.Value)
	if err != nil {
		return "", err
	}

	field := "doc"
	for _, p := range strings.Split(f.Field, ".") {
		if p == "" {
			return "", fmt.Errorf("invalid field path %q", f.Field)
		}
		field += fmt.Sprintf("[%s]", quote(p))
	}

	switch f.Op {
	case model.OpEq:
		return fmt.Sprintf("%s == %s", field, valStr), nil
	case model.OpNe:
		return fmt.Sprintf("%s != %s", field, valStr), nil
	case model.OpGt:
		return fmt.Sprintf("%s > %s", field, valStr), nil
	case model.OpGte:
		return fmt.Sprintf("%s >= %s", field, valStr), nil
	case model.OpLt:
		return fmt.Sprintf("%s < %s", field, valStr), nil
	case model.OpLte:
		return fmt.Sprintf("%s <= %s", field, valStr), nil
	case model.OpIn:
		return fmt.Sprintf("%s in %s", field, valStr), nil
	case model.OpContains:
		return fmt.Sprintf("%s in %s", valStr, field), nil
	default:
		return "", fmt.Errorf("unsupported operator: %s", f.Op)
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func formatValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return quote(val), nil
	case int:
		return fmt.Sprintf("%d", val), nil
	case int32:
		return fmt.Sprintf("%d", val), nil
	case int64:
		return fmt.Sprintf("%d", val), nil
	case uint:
		return fmt.Sprintf("%du", val), nil
	case uint32:
		return fmt.Sprintf("%du", val), nil
	case uint64:
		return fmt.Sprintf("%du", val), nil
	case float32:
		return formatFloat(float64(val)), nil
	case float64:
		return formatFloat(val), nil
	case bool:
		return fmt.Sprintf("%v", val), nil
	case []string:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, quote(item))
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", ")), nil
	case []interface{}:
		var parts []string
		for _, item := range val {
			s, err := formatValue(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", ")), nil
	default:
		return "", fmt.Errorf("unsupported value type: %T", v)
	}
}

// formatFloat keeps a decimal point so CEL parses a double literal.
func formatFloat(f float64) string {
	s := fmt.Sprintf("%v", f)
	if !strings.ContainsAny(s, ".eEN") {
		s += ".0"
	}
	return s
}
