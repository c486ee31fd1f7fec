package eval

import (
	"fmt"
	"maps"

	"scenarioctl/internal/api"
)

type required struct{}

// Required marks a property without default value.
var Required any = required{}

// ExpressionPrefix marks a property whose value is an expression.
const ExpressionPrefix = ":"

// Owner names the item whose properties are extracted, for error messages.
type Owner struct {
	Name string
	Type string
}

// OwnerOf returns the owner of an item.
func OwnerOf(it api.Item) Owner {
	return Owner{Name: it.Name, Type: it.Type}
}

// MergeContext resolves the context of an item: its defaults, overridden by the
// inherited context, overridden by its overrides.
func MergeContext(c api.Context, def api.Definition) api.Context {
	out := api.Context{}
	maps.Copy(out, def.Map("defaults"))
	maps.Copy(out, c)
	maps.Copy(out, def.Map("overrides"))
	return out
}

// ExtractProps resolves every key of defaults from props. An expression under
// ":key" wins over a literal "key", which wins over the default. Keys defaulting
// to Required must be present.
func ExtractProps(owner Owner, props api.Definition, defaults map[string]any, bindings map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(defaults))
	for key, fallback := range defaults {
		v, err := Prop(owner, props, key, fallback, bindings)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// Prop resolves a single property the way ExtractProps does.
func Prop(owner Owner, props api.Definition, key string, fallback any, bindings map[string]any) (any, error) {
	if expression, ok := props[ExpressionPrefix+key]; ok {
		code, isString := expression.(string)
		if !isString {
			return nil, fmt.Errorf("property %q of item %q: expression must be a string, got %T", key, owner.Name, expression)
		}
		v, err := Interpret(code, bindings)
		if err != nil {
			return nil, fmt.Errorf("property %q of item %q: %w", key, owner.Name, err)
		}
		return v, nil
	}
	if v, ok := props[key]; ok {
		return v, nil
	}
	if _, ok := fallback.(required); ok {
		return nil, fmt.Errorf("%w %q for item %q of type %q", api.ErrMissingProperty, key, owner.Name, owner.Type)
	}
	return fallback, nil
}

// PropText describes a property for humans: the expression text if there is
// one, else the literal value, else fallback.
func PropText(props api.Definition, key string, fallback string) string {
	if expression, ok := props[ExpressionPrefix+key]; ok {
		return fmt.Sprint(expression)
	}
	if v, ok := props[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return fallback
}
