package config

// ScenarioctlConfig is the top-level configuration structure for scenarioctl.
type ScenarioctlConfig struct {
	// Concurrent allows more than one job to run at the same time
	Concurrent *bool           `yaml:"concurrent,omitempty"`
	Server     ServerConfig    `yaml:"server"`
	Scenarios  ScenariosConfig `yaml:"scenarios"`
	// Context is the base context of every scenario
	Context map[string]any `yaml:"context,omitempty"`
	// EnvFile names a dotenv file whose entries are added to the base context
	EnvFile                   string        `yaml:"envFile,omitempty"`
	SystemUnderTestVersionURL string        `yaml:"systemUnderTestVersionUrl,omitempty"`
	Logging                   LoggingConfig `yaml:"logging"`
	Report                    ReportConfig  `yaml:"report"`
}

// ServerConfig configures the REST service started by `scenarioctl serve`.
type ServerConfig struct {
	Host           string   `yaml:"host,omitempty"`
	Port           int      `yaml:"port,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// ScenariosConfig locates scenario files.
type ScenariosConfig struct {
	Dir string `yaml:"dir,omitempty"`
	// Patterns are globs relative to Dir, every scenario file in Dir if empty
	Patterns []string `yaml:"patterns,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error
	Format string `yaml:"format,omitempty"` // text or json
}

// ReportConfig configures the report files written after local runs.
type ReportConfig struct {
	// Dir receives JSON and JUnit reports, none are written if empty
	Dir string `yaml:"dir,omitempty"`
}

// IsConcurrent reports whether concurrent jobs are allowed.
func (c ScenarioctlConfig) IsConcurrent() bool {
	return c.Concurrent != nil && *c.Concurrent
}
