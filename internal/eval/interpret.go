package eval

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"
)

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidIdentifier reports whether name can be referenced from an expression.
func ValidIdentifier(name string) bool {
	return name != "$env" && identifier.MatchString(name)
}

// Interpret evaluates expression against bindings. Bindings whose names are not
// identifiers are not visible. An empty expression evaluates to nil.
func Interpret(expression string, bindings map[string]any) (any, error) {
	if expression == "" {
		return nil, nil
	}

	env := make(map[string]any, len(bindings))
	for k, v := range bindings {
		if ValidIdentifier(k) {
			env[k] = v
		}
	}

	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	return out, nil
}
