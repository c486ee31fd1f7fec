package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"scenarioctl/internal/api"
	"scenarioctl/internal/color"
)

// DefaultDescriptionWidth is the number of cells a description may take
// before it is truncated.
const DefaultDescriptionWidth = 80

// Console prints result trees, one line per result.
type Console struct {
	out   io.Writer
	width int
}

// NewConsole creates a console reporter writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, width: DefaultDescriptionWidth}
}

// WithDescriptionWidth changes where descriptions are truncated, zero
// disables truncation.
func (c *Console) WithDescriptionWidth(width int) *Console {
	c.width = width
	return c
}

// Report prints every tree.
func (c *Console) Report(trees []api.Result) {
	for _, r := range trees {
		c.result(r, 0)
	}
}

func (c *Console) result(r api.Result, indent int) {
	space := strings.Repeat(" ", indent)

	source := ""
	if r.Subject.SourceFile != "" {
		source = " | .../" + r.Subject.SourceFile
	}
	line := fmt.Sprintf("%s+ %s %s [%s %s%s]",
		space,
		color.Outcome(r.Outcome).Render(string(r.Outcome)),
		formatDuration(r.DurationMs),
		r.Subject.Type, r.Subject.Name, source)
	if r.Subject.Description != "" {
		line += " - " + c.truncate(r.Subject.Description)
	}
	fmt.Fprintln(c.out, line)

	for _, d := range details(r) {
		fmt.Fprintln(c.out, d.style.Render(space+"  "+d.text))
	}

	if r.Outcome == api.OutcomeSuccess && len(r.Nested) > 0 && omitsNested(r.Subject.Role) {
		fmt.Fprintln(c.out, color.MutedStyle.Render(fmt.Sprintf("%s  role=%s: omitting nested items", space, r.Subject.Role)))
		return
	}
	for _, n := range r.Nested {
		c.result(n, indent+4)
	}
}

func (c *Console) truncate(s string) string {
	if c.width <= 0 {
		return s
	}
	return runewidth.Truncate(s, c.width, "…")
}

// Summary prints the outcome of a job and the tally of its top-level results.
func (c *Console) Summary(meta api.Meta, trees []api.Result) {
	counts := Count(trees)
	duration := time.Duration(0)
	if meta.Finished != nil {
		duration = meta.Finished.Sub(meta.Started).Round(time.Millisecond)
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "🏁 Job %s finished: %s in %v\n",
		meta.ID, color.Outcome(meta.Outcome).Bold(true).Render(string(meta.Outcome)), duration)
	fmt.Fprintf(c.out, "   ✅ Successful: %d\n", counts.Success)
	if counts.Failure > 0 {
		fmt.Fprintf(c.out, "   ❌ Failed: %d\n", counts.Failure)
	}
	if counts.Error > 0 {
		fmt.Fprintf(c.out, "   💥 Errors: %d\n", counts.Error)
	}
	if counts.Skipped > 0 {
		fmt.Fprintf(c.out, "   ⏭️  Skipped: %d\n", counts.Skipped)
	}
	fmt.Fprintf(c.out, "   📈 Total: %d\n", counts.Total())
}

type detail struct {
	style lipgloss.Style
	text  string
}

func details(r api.Result) []detail {
	var lines []string
	style := color.MutedStyle
	switch r.Outcome {
	case api.OutcomeSuccess, api.OutcomeSkipped:
		lines = splitLines(r.Message)
	case api.OutcomeFailure:
		style = color.WarningStyle
		for _, f := range r.Failures {
			lines = append(lines, splitLines(f)...)
		}
	case api.OutcomeError:
		style = color.ErrorStyle
		for _, e := range r.Errors {
			lines = append(lines, splitLines(e)...)
		}
	}

	out := make([]detail, 0, len(lines))
	for _, l := range lines {
		out = append(out, detail{style: style, text: l})
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// omitsNested reports whether successful results of the role are printed
// without their children.
func omitsNested(role string) bool {
	return role == "prepare" || role == "cleanup"
}

// formatDuration prints more decimals for short durations.
func formatDuration(ms float64) string {
	precision := 0
	switch {
	case ms < 10:
		precision = 3
	case ms < 100:
		precision = 2
	case ms < 1000:
		precision = 1
	}
	return color.Duration(ms).Render("[" + strconv.FormatFloat(ms, 'f', precision, 64) + "ms]")
}
