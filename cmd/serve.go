package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scenarioctl/internal/loader"
	"scenarioctl/internal/metrics"
	"scenarioctl/internal/runner"
	"scenarioctl/internal/server"
	"scenarioctl/internal/state"
	"scenarioctl/pkg/logging"
)

var (
	serveHost           string
	servePort           int
	serveAllowedOrigins []string
	serveConcurrent     bool
)

// newServeCmd defines the serve command, which offers scenarios and runs jobs
// over the REST API until interrupted.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [scenario...]",
		Short: "Serve scenarios and run jobs over a REST API",
		Long: `Starts the scenarioctl REST API. Clients list the configured scenarios at
/api/scenarios, submit jobs to /api/jobs and follow their results, progress
and metrics as JSON streams or over the /api/jobs/{id}/events websocket.
Prometheus metrics are served at /metrics.

Only one job runs at a time unless concurrent jobs are enabled. Ctrl+C
cancels running jobs and stops the server.`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: from config)")
	cmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: from config)")
	cmd.Flags().StringSliceVar(&serveAllowedOrigins, "allowed-origin", nil, "Origins allowed for CORS and websockets, * for any")
	cmd.Flags().BoolVar(&serveConcurrent, "concurrent", false, "Allow more than one job to run at the same time")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := cfg.BaseContext()
	if err != nil {
		return err
	}
	refs, err := discoverScenarios(args)
	if err != nil {
		logging.Warn("CLI", "No scenarios to offer: %v", err)
	}

	serverConfig := server.Config{
		Host:                      cfg.Server.Host,
		Port:                      cfg.Server.Port,
		AllowedOrigins:            cfg.Server.AllowedOrigins,
		Scenarios:                 refs,
		Context:                   c,
		SystemUnderTestVersionURL: cfg.SystemUnderTestVersionURL,
		Version:                   rootCmd.Version,
	}
	if serveHost != "" {
		serverConfig.Host = serveHost
	}
	if servePort != 0 {
		serverConfig.Port = servePort
	}
	if serveAllowedOrigins != nil {
		serverConfig.AllowedOrigins = serveAllowedOrigins
	}
	concurrent := cfg.IsConcurrent() || serveConcurrent

	registry := newRegistry()
	m := metrics.New()
	srv := server.New(serverConfig,
		state.NewHub(state.WithConcurrency(concurrent)),
		loader.New(registry),
		runner.New(registry, runner.WithObserver(m)),
		m)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-ctx.Done()
	fmt.Println("\nReceived interrupt signal, shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
