package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseContext(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TOKEN=secret\nbaseUrl=http://env\n"), 0644))

	cfg := GetDefaultConfig()
	cfg.EnvFile = envFile
	cfg.Context = map[string]any{"baseUrl": "http://configured", "retries": 3}

	c, err := cfg.BaseContext()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"TOKEN":   "secret",
		"baseUrl": "http://configured",
		"retries": 3,
	}, c)

	cfg.EnvFile = filepath.Join(t.TempDir(), "missing.env")
	_, err = cfg.BaseContext()
	assert.ErrorContains(t, err, "reading env file")
}

func TestScenarioRefs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"smoke-a.yaml", "smoke-b.yaml", "load.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("type: output\n"), 0644))
	}

	tests := []struct {
		name     string
		patterns []string
		args     []string
		expected []string
	}{
		{
			name:     "whole directory",
			expected: []string{dir},
		},
		{
			name:     "arguments relative to the directory",
			args:     []string{"load.yaml", "/abs/other.yaml"},
			expected: []string{filepath.Join(dir, "load.yaml"), "/abs/other.yaml"},
		},
		{
			name:     "patterns",
			patterns: []string{"smoke-*.yaml", "*-a.yaml"},
			expected: []string{filepath.Join(dir, "smoke-a.yaml"), filepath.Join(dir, "smoke-b.yaml")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Scenarios = ScenariosConfig{Dir: dir, Patterns: tt.patterns}

			refs, err := cfg.ScenarioRefs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, refs)
		})
	}

	cfg := GetDefaultConfig()
	cfg.Scenarios.Dir = filepath.Join(dir, "missing")
	_, err := cfg.ScenarioRefs(nil)
	assert.ErrorContains(t, err, "could not be found")
}
