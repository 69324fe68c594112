package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

// expressionEnv is shared by every expression rule.
// input: all metadata fields; value: observed values of the rule's own field
func expressionEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("value", cel.ListType(cel.StringType)),
		)
		if celEnvErr != nil {
			celEnvErr = fmt.Errorf("failed to create CEL environment: %w", celEnvErr)
		}
	})
	return celEnv, celEnvErr
}

// compileExpression type-checks expr and builds a program
func compileExpression(expr string) (cel.Program, error) {
	env, err := expressionEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %w", err)
	}
	return prg, nil
}

// evalExpression - runtime errors and non-bool results count as failure
func evalExpression(prg cel.Program, values []string, input map[string]interface{}) bool {
	if prg == nil {
		return false
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"input": input,
		"value": stringSliceToInterface(values),
	})
	if err != nil {
		return false
	}

	passed, ok := out.Value().(bool)
	return ok && passed
}
