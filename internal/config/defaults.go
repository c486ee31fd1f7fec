package config

const (
	DefaultHost         = "localhost"
	DefaultPort         = 3000
	DefaultScenarioDir  = "scenarios"
	DefaultLogLevel     = "info"
	DefaultLoggingStyle = "text"
)

// GetDefaultConfig returns the configuration used when no file overrides it.
func GetDefaultConfig() ScenarioctlConfig {
	concurrent := false
	return ScenarioctlConfig{
		Concurrent: &concurrent,
		Server: ServerConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			AllowedOrigins: []string{},
		},
		Scenarios: ScenariosConfig{
			Dir: DefaultScenarioDir,
		},
		Context: map[string]any{},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLoggingStyle,
		},
	}
}
