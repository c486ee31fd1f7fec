package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenarioctl/internal/api"
)

func TestMergeContext(t *testing.T) {
	c := api.Context{"a": "ctx", "b": "ctx"}
	def := api.Definition{
		"defaults":  map[string]any{"a": "default", "c": "default"},
		"overrides": map[string]any{"b": "override"},
	}

	merged := MergeContext(c, def)
	assert.Equal(t, api.Context{"a": "ctx", "b": "override", "c": "default"}, merged)
	assert.Equal(t, "ctx", c["b"], "input context must not change")
}

func TestMergeContext_NoDefaultsOrOverrides(t *testing.T) {
	merged := MergeContext(api.Context{"x": 1}, api.Definition{})
	assert.Equal(t, api.Context{"x": 1}, merged)
}

func TestExtractProps_Priority(t *testing.T) {
	props := api.Definition{
		":url":  `base + "/x"`,
		"url":   "ignored literal",
		"limit": 5,
	}
	defaults := map[string]any{
		"url":    Required,
		"limit":  10,
		"method": "GET",
	}

	got, err := ExtractProps(Owner{Name: "req", Type: "request"}, props, defaults, map[string]any{"base": "http://h"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"url": "http://h/x", "limit": 5, "method": "GET"}, got)
}

func TestExtractProps_MissingRequired(t *testing.T) {
	_, err := ExtractProps(Owner{Name: "req", Type: "request"}, api.Definition{}, map[string]any{"url": Required}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrMissingProperty))
	assert.Contains(t, err.Error(), `"url"`)
	assert.Contains(t, err.Error(), `"req"`)
	assert.Contains(t, err.Error(), `"request"`)
}

func TestExtractProps_ExplicitNilIsPresent(t *testing.T) {
	got, err := ExtractProps(Owner{}, api.Definition{"value": nil}, map[string]any{"value": Required}, nil)
	require.NoError(t, err)
	assert.Nil(t, got["value"])
}

func TestExtractProps_ExpressionError(t *testing.T) {
	_, err := ExtractProps(Owner{Name: "x"}, api.Definition{":value": "nope.nope"}, map[string]any{"value": nil}, nil)
	assert.Error(t, err)
}

func TestPropText(t *testing.T) {
	props := api.Definition{":value": "$results.a.value", "expected": 3}
	assert.Equal(t, "$results.a.value", PropText(props, "value", "?"))
	assert.Equal(t, "3", PropText(props, "expected", "truthy"))
	assert.Equal(t, "truthy", PropText(props, "missing", "truthy"))
}
