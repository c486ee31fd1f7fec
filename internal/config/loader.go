package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/scenarioctl"
	projectConfigDir = ".scenarioctl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the scenarioctl configuration by layering default, user, and
// project settings. A non-empty explicitPath is layered on top of those.
func LoadConfig(explicitPath string) (ScenarioctlConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. User-specific configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// user config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else if config, err = layer(config, userConfigPath, false); err != nil {
		return ScenarioctlConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	// 3. Project-specific configuration
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else if config, err = layer(config, projectConfigPath, false); err != nil {
		return ScenarioctlConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	// 4. Configuration named on the command line, which must exist
	if explicitPath != "" {
		if config, err = layer(config, explicitPath, true); err != nil {
			return ScenarioctlConfig{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
	}

	return config, nil
}

func layer(base ScenarioctlConfig, path string, required bool) (ScenarioctlConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && !required {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return base, err
	}
	return mergeConfigs(base, overlay), nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a ScenarioctlConfig from a YAML file.
func loadConfigFromFile(filePath string) (ScenarioctlConfig, error) {
	var config ScenarioctlConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return ScenarioctlConfig{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return ScenarioctlConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
func mergeConfigs(base, overlay ScenarioctlConfig) ScenarioctlConfig {
	mergedConfig := base

	// Only if explicitly set in overlay
	if overlay.Concurrent != nil {
		concurrent := *overlay.Concurrent
		mergedConfig.Concurrent = &concurrent
	}

	if overlay.Server.Host != "" {
		mergedConfig.Server.Host = overlay.Server.Host
	}
	if overlay.Server.Port != 0 {
		mergedConfig.Server.Port = overlay.Server.Port
	}
	if overlay.Server.AllowedOrigins != nil {
		mergedConfig.Server.AllowedOrigins = overlay.Server.AllowedOrigins
	}

	if overlay.Scenarios.Dir != "" {
		mergedConfig.Scenarios.Dir = overlay.Scenarios.Dir
	}
	if overlay.Scenarios.Patterns != nil {
		mergedConfig.Scenarios.Patterns = overlay.Scenarios.Patterns
	}

	// Context entries are merged key by key, overlay wins
	mergedConfig.Context = maps.Clone(base.Context)
	if mergedConfig.Context == nil {
		mergedConfig.Context = map[string]any{}
	}
	maps.Copy(mergedConfig.Context, overlay.Context)

	if overlay.EnvFile != "" {
		mergedConfig.EnvFile = overlay.EnvFile
	}
	if overlay.SystemUnderTestVersionURL != "" {
		mergedConfig.SystemUnderTestVersionURL = overlay.SystemUnderTestVersionURL
	}

	if overlay.Logging.Level != "" {
		mergedConfig.Logging.Level = overlay.Logging.Level
	}
	if overlay.Logging.Format != "" {
		mergedConfig.Logging.Format = overlay.Logging.Format
	}

	if overlay.Report.Dir != "" {
		mergedConfig.Report.Dir = overlay.Report.Dir
	}

	return mergedConfig
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
