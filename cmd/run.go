package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scenarioctl/internal/api"
	"scenarioctl/internal/loader"
	"scenarioctl/internal/plugin"
	"scenarioctl/internal/report"
	"scenarioctl/internal/runner"
	"scenarioctl/internal/state"
	"scenarioctl/pkg/logging"
)

var (
	runRemote           string
	runReportDir        string
	runContext          string
	runWait             time.Duration
	runDescriptionWidth int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios once and report their results",
		Long: `Loads the configured scenarios, or those named as arguments relative to the
scenario directory, runs them as one job and prints a result tree.

With --remote the preprocessed scenarios are submitted to a running
'scenarioctl serve' instead and its results are reported.

The command exits non-zero unless every scenario succeeded. Ctrl+C cancels the
job; remaining items are skipped and the partial results are reported.`,
		RunE: runScenarios,
	}

	cmd.Flags().StringVar(&runRemote, "remote", "", "URL of a scenarioctl server API to run the job on, e.g. http://localhost:3000/api")
	cmd.Flags().StringVar(&runReportDir, "report-dir", "", "Write JSON and JUnit reports to this directory (default: from config)")
	cmd.Flags().StringVar(&runContext, "context", "", "JSON object added to the base scenario context")
	cmd.Flags().DurationVar(&runWait, "wait", 0, "Wait this long before running, e.g. for the system under test to start")
	cmd.Flags().IntVar(&runDescriptionWidth, "description-width", 0, "Truncate item descriptions to this many columns")
	return cmd
}

func runScenarios(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupts gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nReceived interrupt signal, cancelling job...")
			cancel()
		case <-ctx.Done():
		}
	}()

	c, err := scenarioContext(runContext)
	if err != nil {
		return err
	}
	refs, err := discoverScenarios(args)
	if err != nil {
		return err
	}

	if runWait > 0 {
		logging.Info("CLI", "Waiting %v before running", runWait)
		select {
		case <-time.After(runWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	registry := newRegistry()
	items := loader.New(registry).LoadScenarios(ctx, c, refs)
	if len(items) == 0 {
		return fmt.Errorf("no scenarios could be loaded from %v", refs)
	}

	var (
		meta    api.Meta
		results []api.Result
	)
	if runRemote != "" {
		meta, results, err = runRemotely(ctx, runRemote, items)
	} else {
		meta, results, err = runLocally(ctx, registry, items)
	}
	if err != nil {
		return err
	}

	trees := report.ResultTrees(items, results)
	console := report.NewConsole(cmd.OutOrStdout())
	if runDescriptionWidth > 0 {
		console = console.WithDescriptionWidth(runDescriptionWidth)
	}
	console.Report(trees)
	console.Summary(meta, trees)

	reportDir := cfg.Report.Dir
	if runReportDir != "" {
		reportDir = runReportDir
	}
	if reportDir != "" {
		if err := writeReports(reportDir, meta, trees); err != nil {
			return err
		}
	}

	if meta.Outcome != api.OutcomeSuccess {
		return fmt.Errorf("job %s finished with outcome %s", meta.ID, meta.Outcome)
	}
	return nil
}

// runLocally runs items in process. Cancelling ctx cancels the job, which then
// finishes with the remaining items skipped.
func runLocally(ctx context.Context, registry *plugin.Registry, items []api.Item) (api.Meta, []api.Result, error) {
	job, err := state.NewHub().CreateJob(items)
	if err != nil {
		return api.Meta{}, nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = job.Cancel(context.Background())
		case <-job.Done():
		}
	}()

	runner.New(registry).RunJob(context.WithoutCancel(ctx), job)
	return job.Meta(), job.Results(), nil
}

func writeReports(dir string, meta api.Meta, trees []api.Result) error {
	path, err := report.WriteJSON(dir, meta, trees)
	if err != nil {
		return err
	}
	logging.Info("CLI", "Wrote report %s", path)

	paths, err := report.WriteJUnit(dir, trees)
	if err != nil {
		return err
	}
	for _, p := range paths {
		logging.Info("CLI", "Wrote JUnit report %s", p)
	}
	return nil
}
