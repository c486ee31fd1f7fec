// Package config provides configuration management for scenarioctl.
//
// This package implements a layered configuration system that allows users to
// customize scenarioctl's behavior through YAML files. Configuration is loaded
// from multiple sources and merged in a specific order, with later sources
// overriding earlier ones.
//
// # Configuration Layers
//
// Configuration is loaded and merged in the following order:
//
//  1. Default Configuration (embedded in binary)
//     - Serves on localhost:3000, scenarios are read from ./scenarios
//
//  2. User Configuration (~/.config/scenarioctl/config.yaml)
//     - User-specific settings that apply to all projects
//
//  3. Project Configuration (./.scenarioctl/config.yaml)
//     - Project-specific settings in the current directory
//     - Allows teams to share configuration via version control
//
//  4. The file passed with --config, if any
//
// Command line flags override the merged result.
//
// # Configuration Structure
//
//	concurrent: false
//	server:
//	  host: "localhost"
//	  port: 3000
//	  allowedOrigins: ["http://localhost:8080"]
//	scenarios:
//	  dir: "scenarios"
//	  patterns: ["smoke-*.yaml"]
//	context:
//	  baseUrl: "http://localhost:8000"
//	envFile: ".env"
//	systemUnderTestVersionUrl: "http://localhost:8000/version"
//	logging:
//	  level: "info"
//	  format: "text"
//	report:
//	  dir: "reports"
//
// # Scenario Context
//
// The context map is merged key by key across layers. Entries of the envFile,
// a dotenv file, are added to it; explicitly configured entries win.
//
// # Usage Example
//
//	cfg, err := config.LoadConfig("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	base, err := cfg.BaseContext()
//	refs, err := cfg.ScenarioRefs(args)
package config
