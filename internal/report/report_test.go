package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenarioctl/internal/api"
	"scenarioctl/internal/color"
)

func TestMain(m *testing.M) {
	color.Disable()
	os.Exit(m.Run())
}

func res(id int, typ, name string, outcome api.Outcome) api.Result {
	return api.Result{
		Subject:    api.Subject{ID: id, Type: typ, Name: name, Role: api.DefaultRole},
		Outcome:    outcome,
		DurationMs: 12.3456,
		Message:    strings.ToLower(string(outcome)),
		Failures:   []string{},
		Errors:     []string{},
	}
}

func sampleItems() []api.Item {
	return []api.Item{
		{ID: 1, Type: "suite", Name: "smoke", Items: []api.Item{
			{ID: 2, Type: "request", Name: "ping"},
			{ID: 3, Type: "expect", Name: "check"},
		}},
		{ID: 4, Type: "delay", Name: "never-ran"},
	}
}

func TestResultTrees(t *testing.T) {
	results := []api.Result{
		res(2, "request", "ping", api.OutcomeSuccess),
		res(3, "expect", "check", api.OutcomeFailure),
		res(1, "suite", "smoke", api.OutcomeFailure),
	}

	trees := ResultTrees(sampleItems(), results)

	require.Len(t, trees, 1)
	assert.Equal(t, "smoke", trees[0].Subject.Name)
	require.Len(t, trees[0].Nested, 2)
	assert.Equal(t, "ping", trees[0].Nested[0].Subject.Name)
	assert.Equal(t, "check", trees[0].Nested[1].Subject.Name)
	assert.Empty(t, trees[0].Nested[0].Nested)
}

func TestConsole_Report(t *testing.T) {
	suite := res(1, "suite", "smoke", api.OutcomeFailure)
	suite.Subject.SourceFile = "project/scenarios/smoke.yaml"
	suite.Subject.Description = "smoke tests"
	suite.Message = "1/2 successful"
	check := res(3, "expect", "check", api.OutcomeFailure)
	check.Failures = []string{"expected `x` to be truthy but got (0)"}
	suite.Nested = []api.Result{res(2, "request", "ping", api.OutcomeSuccess), check}

	var out bytes.Buffer
	NewConsole(&out).Report([]api.Result{suite})

	assert.Equal(t, strings.Join([]string{
		"+ FAILURE [12.35ms] [suite smoke | .../project/scenarios/smoke.yaml] - smoke tests",
		"    + SUCCESS [12.35ms] [request ping]",
		"      success",
		"    + FAILURE [12.35ms] [expect check]",
		"      expected `x` to be truthy but got (0)",
		"",
	}, "\n"), out.String())
}

func TestConsole_OmitsNestedOfSuccessfulPreparation(t *testing.T) {
	prepare := res(1, "suite", "setup", api.OutcomeSuccess)
	prepare.Subject.Role = "prepare"
	prepare.Nested = []api.Result{res(2, "request", "login", api.OutcomeSuccess)}

	var out bytes.Buffer
	NewConsole(&out).Report([]api.Result{prepare})

	assert.Contains(t, out.String(), "role=prepare: omitting nested items")
	assert.NotContains(t, out.String(), "login")
}

func TestConsole_TruncatesDescription(t *testing.T) {
	r := res(1, "expect", "long", api.OutcomeSkipped)
	r.Subject.Description = strings.Repeat("x", 50)

	var out bytes.Buffer
	NewConsole(&out).WithDescriptionWidth(10).Report([]api.Result{r})

	assert.Contains(t, out.String(), " - xxxxxxxxx…\n")
}

func TestConsole_Summary(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)
	meta := api.Meta{ID: "7", Created: started, Started: started, Finished: &finished, Outcome: api.OutcomeError}

	var out bytes.Buffer
	NewConsole(&out).Summary(meta, []api.Result{
		res(1, "suite", "a", api.OutcomeSuccess),
		res(2, "suite", "b", api.OutcomeError),
	})

	assert.Contains(t, out.String(), "Job 7 finished: ERROR in 1.5s")
	assert.Contains(t, out.String(), "Successful: 1")
	assert.Contains(t, out.String(), "Errors: 1")
	assert.Contains(t, out.String(), "Total: 2")
	assert.NotContains(t, out.String(), "Skipped")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "[0.500ms]", formatDuration(0.5))
	assert.Equal(t, "[12.35ms]", formatDuration(12.3456))
	assert.Equal(t, "[123.5ms]", formatDuration(123.45))
	assert.Equal(t, "[2000ms]", formatDuration(2000.4))
}

func TestWriteJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	meta := api.Meta{ID: "3", Outcome: api.OutcomeSuccess}

	path, err := WriteJSON(dir, meta, []api.Result{res(1, "expect", "ok", api.OutcomeSuccess)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "scenarioctl-report-3-"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "3", doc["job"].(map[string]any)["id"])
	assert.Len(t, doc["results"], 1)
}

func TestWriteJUnit(t *testing.T) {
	suite := res(1, "suite", "smoke tests", api.OutcomeFailure)
	check := res(3, "expect", "check", api.OutcomeFailure)
	check.Failures = []string{"did not hold"}
	suite.Nested = []api.Result{res(2, "request", "ping", api.OutcomeSuccess), check}

	paths, err := WriteJUnit(t.TempDir(), []api.Result{suite})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "smoke_tests.xml", filepath.Base(paths[0]))

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	xml := string(data)
	assert.Contains(t, xml, `<testsuite name="smoke tests"`)
	assert.Contains(t, xml, `tests="3" success="1" skipped="0" failures="2" errors="0"`)
	assert.Contains(t, xml, `<testcase name="ping"`)
	assert.Contains(t, xml, `<failure message="failure">`)
	assert.Contains(t, xml, "Stacktrace: did not hold")
}
