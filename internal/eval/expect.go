package eval

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

type truthy struct{}

// Truthy is the expected value of an expectation that only checks truthiness.
var Truthy any = truthy{}

// IsTruthy follows the usual scripting rules: nil, false, zero, NaN and the
// empty string are falsy, everything else is truthy.
func IsTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// Expectation checks an actual value and returns failure messages, none on success.
type Expectation struct {
	label  string
	actual any
}

// Expect starts an expectation about actual, described by label in failures.
func Expect(label string, actual any) Expectation {
	return Expectation{label: label, actual: actual}
}

func (e Expectation) ToBeTruthy() []string {
	if IsTruthy(e.actual) {
		return nil
	}
	return []string{fmt.Sprintf("expected %s to be truthy but got (%s)", e.label, Stringify(e.actual))}
}

// ToDeepEqual compares scalars loosely and compound values by their JSON form.
func (e Expectation) ToDeepEqual(expected any) []string {
	if _, ok := expected.(truthy); ok {
		return e.ToBeTruthy()
	}
	if LooseEqual(expected, e.actual) {
		return nil
	}
	return []string{fmt.Sprintf("expected %s to be equal to (%s) but got (%s)", e.label, Stringify(expected), Stringify(e.actual))}
}

// ToBe compares strictly: values must have the same kind and content.
func (e Expectation) ToBe(expected any) []string {
	if _, ok := expected.(truthy); ok {
		return e.ToBeTruthy()
	}
	if StrictEqual(expected, e.actual) {
		return nil
	}
	return []string{fmt.Sprintf("expected %s to be (%s) but got (%s)", e.label, Stringify(expected), Stringify(e.actual))}
}

func (e Expectation) ToBeAtMost(limit float64) []string {
	act, _ := toFloat(e.actual)
	if act < limit {
		return nil
	}
	return []string{fmt.Sprintf("expected %s to be at most %.2f but was %.2f", e.label, limit, act)}
}

func (e Expectation) ToBeAtLeast(limit float64) []string {
	act, _ := toFloat(e.actual)
	if act > limit {
		return nil
	}
	return []string{fmt.Sprintf("expected %s to be at least %.2f but was %.2f", e.label, limit, act)}
}

// ToSatisfy reports a failure unless ok. predicate names what was checked.
func (e Expectation) ToSatisfy(ok bool, predicate string) []string {
	if ok {
		return nil
	}
	return []string{fmt.Sprintf("expected %s to satisfy %s but got (%s)", e.label, predicate, Stringify(e.actual))}
}

// LooseEqual compares two scalars with type coercion (1 equals "1", true
// equals 1) and two compound values by their JSON encoding.
func LooseEqual(a, b any) bool {
	if isScalar(a) && isScalar(b) {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		if fa, ok := toFloat(a); ok {
			if fb, ok := toFloat(b); ok {
				return fa == fb
			}
		}
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	return Stringify(a) == Stringify(b)
}

// StrictEqual compares without coercion. Numbers of different Go types are
// equal when their values are.
func StrictEqual(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	if isScalar(a) || isScalar(b) {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// Stringify renders a value as JSON for messages.
func Stringify(v any) string {
	data, err := json.Marshal(normalize(v))
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func isScalar(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		return false
	}
	return true
}

// number converts numeric kinds only.
func number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// toFloat converts numbers, numeric strings and booleans.
func toFloat(v any) (float64, bool) {
	if f, ok := number(v); ok {
		return f, true
	}
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// normalize maps decoded data to the shapes produced by encoding/json, so that
// values read from YAML compare equal to values read from JSON.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = normalize(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[fmt.Sprint(k)] = normalize(v)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = normalize(v)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = v
		}
		return out
	}
	if f, ok := number(v); ok {
		return f
	}
	return v
}
