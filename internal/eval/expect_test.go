package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTruthy(t *testing.T) {
	for _, v := range []any{true, 1, -2.5, "x", map[string]any{}, []any{}} {
		assert.True(t, IsTruthy(v), "%#v", v)
	}
	for _, v := range []any{nil, false, 0, 0.0, "", math.NaN()} {
		assert.False(t, IsTruthy(v), "%#v", v)
	}
}

func TestLooseEqual(t *testing.T) {
	assert.True(t, LooseEqual(1, "1"))
	assert.True(t, LooseEqual(200, 200.0))
	assert.True(t, LooseEqual(true, 1))
	assert.True(t, LooseEqual(nil, nil))
	assert.False(t, LooseEqual(nil, 0))
	assert.True(t, LooseEqual(
		map[string]any{"a": []any{1, 2}},
		map[string]any{"a": []any{1.0, 2.0}},
	))
	assert.False(t, LooseEqual(map[string]any{"a": 1}, map[string]any{"a": 2}))
}

func TestStrictEqual(t *testing.T) {
	assert.True(t, StrictEqual(3, 3.0))
	assert.False(t, StrictEqual(1, "1"))
	assert.False(t, StrictEqual(true, 1))
	assert.True(t, StrictEqual("a", "a"))
	assert.True(t, StrictEqual(map[string]any{"a": 1}, map[string]any{"a": 1.0}))
}

func TestExpectation(t *testing.T) {
	assert.Empty(t, Expect("`x`", 5).ToDeepEqual("5"))
	assert.Equal(t,
		[]string{"expected `x` to be equal to (6) but got (5)"},
		Expect("`x`", 5).ToDeepEqual(6))
	assert.Equal(t,
		[]string{`expected ` + "`x`" + ` to be ("5") but got (5)`},
		Expect("`x`", 5).ToBe("5"))
	assert.Equal(t,
		[]string{"expected `x` to be truthy but got (0)"},
		Expect("`x`", 0).ToDeepEqual(Truthy))
	assert.Empty(t, Expect("`x`", "yes").ToBe(Truthy))
	assert.Empty(t, Expect("d", 10).ToBeAtMost(20))
	assert.Equal(t,
		[]string{"expected d to be at least 20.00 but was 10.00"},
		Expect("d", 10).ToBeAtLeast(20))
}
