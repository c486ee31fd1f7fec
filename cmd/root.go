package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"scenarioctl/internal/color"
	"scenarioctl/internal/config"
	"scenarioctl/pkg/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	// cfg is the merged configuration, loaded before any subcommand runs
	cfg config.ScenarioctlConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scenarioctl",
	Short: "Run declarative integration and load test scenarios",
	Long: `scenarioctl runs test scenarios written as YAML or JSON item trees against
a system under test and reports the outcome of every item.

Scenarios can be run once from the command line, or served over a REST API
that runs them as jobs and streams their results, progress and metrics.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed scenarios, unreachable servers)
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "scenarioctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

// loadConfig merges the configuration files, applies the global flags and
// sets up logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		loaded.Logging.Format = logFormat
	}

	level, err := logging.ParseLevel(loaded.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logging.Init(level, logging.Format(loaded.Logging.Format), cmd.ErrOrStderr())

	if noColor {
		color.Disable()
		text.DisableColors()
	}
	cfg = loaded
	return nil
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScenariosCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file layered over ~/.config/scenarioctl and ./.scenarioctl")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLoggingStyle, "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}
