package cmd

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"scenarioctl/internal/api"
	"scenarioctl/internal/loader"
	"scenarioctl/internal/plugin"
	"scenarioctl/internal/plugins"
	"scenarioctl/internal/runner"
)

var scenariosContext string

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios [scenario...]",
		Short: "List the scenarios that would be run",
		Long: `Loads and preprocesses the configured scenarios, or those named as arguments,
and lists them. Scenarios that fail to load are left out, run with
--log-level=debug to see why.`,
		RunE: runListScenarios,
	}
	cmd.Flags().StringVar(&scenariosContext, "context", "", "JSON object added to the base scenario context")
	return cmd
}

func runListScenarios(cmd *cobra.Command, args []string) error {
	c, err := scenarioContext(scenariosContext)
	if err != nil {
		return err
	}
	refs, err := discoverScenarios(args)
	if err != nil {
		return err
	}

	items := loader.New(newRegistry()).LoadScenarios(cmd.Context(), c, refs)
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), text.FgYellow.Sprint("No scenarios found"))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("TYPE"),
		text.FgHiCyan.Sprint("ITEMS"),
		text.FgHiCyan.Sprint("FILE"),
		text.FgHiCyan.Sprint("DESCRIPTION"),
	})
	for _, it := range items {
		t.AppendRow(table.Row{
			text.FgYellow.Sprint(it.Name),
			text.FgCyan.Sprint(it.Type),
			countItems(it.Items),
			runner.SourceFile(it.Context.String(api.KeyFileName)),
			it.Description,
		})
	}
	t.Render()
	return nil
}

func countItems(items []api.Item) int {
	n := len(items)
	for _, it := range items {
		n += countItems(it.Items)
	}
	return n
}

func newRegistry() *plugin.Registry {
	return plugin.NewRegistry(plugins.Builtin())
}

// scenarioContext returns the configured base context extended by a JSON
// object given on the command line.
func scenarioContext(contextJSON string) (api.Context, error) {
	base, err := cfg.BaseContext()
	if err != nil {
		return nil, err
	}
	if contextJSON != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(contextJSON), &extra); err != nil {
			return nil, fmt.Errorf("invalid --context: %w", err)
		}
		maps.Copy(base, extra)
	}
	return api.Context(base), nil
}

func discoverScenarios(args []string) ([]string, error) {
	refs, err := cfg.ScenarioRefs(args)
	if err != nil {
		return nil, err
	}
	return loader.Discover(refs)
}
