package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
)

// BaseContext returns the context every scenario starts from: the entries of
// the env file, if any, overridden by the configured context.
func (c ScenarioctlConfig) BaseContext() (map[string]any, error) {
	out := map[string]any{}
	if c.EnvFile != "" {
		env, err := godotenv.Read(c.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", c.EnvFile, err)
		}
		for k, v := range env {
			out[k] = v
		}
	}
	maps.Copy(out, c.Context)
	return out, nil
}

// ScenarioRefs returns the scenario references to load. Arguments name
// scenarios relative to the scenario directory. Without arguments the
// configured patterns are matched, or the whole directory is used.
func (c ScenarioctlConfig) ScenarioRefs(args []string) ([]string, error) {
	dir := c.Scenarios.Dir
	if len(args) > 0 {
		refs := make([]string, 0, len(args))
		for _, arg := range args {
			if filepath.IsAbs(arg) {
				refs = append(refs, arg)
				continue
			}
			refs = append(refs, filepath.Join(dir, arg))
		}
		return refs, nil
	}

	if len(c.Scenarios.Patterns) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("scenario folder %q could not be found: %w", dir, err)
		}
		return []string{dir}, nil
	}

	var refs []string
	for _, pattern := range c.Scenarios.Patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid scenario pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !slices.Contains(refs, m) {
				refs = append(refs, m)
			}
		}
	}
	return refs, nil
}
