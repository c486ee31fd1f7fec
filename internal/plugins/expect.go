package plugins

import (
	"context"
	"fmt"
	"regexp"

	"scenarioctl/internal/api"
	"scenarioctl/internal/eval"
	"scenarioctl/internal/plugin"
)

func expectPlugin() plugin.Plugin {
	return plugin.Plugin{
		Describe: func(it api.Item) string {
			return fmt.Sprintf("%s to be %s", eval.PropText(it.Props, "value", "value"), eval.PropText(it.Props, "expected", "truthy"))
		},
		RunProps: map[string]any{
			"expected": eval.Truthy,
			"matches":  "",
			"value":    nil,
			"strict":   false,
		},
		Run: runExpect,
	}
}

func runExpect(_ context.Context, call plugin.Call) (api.Partial, error) {
	value := call.Props.Value("value")
	label := "`" + eval.PropText(call.Item.Props, "value", "value") + "`"

	var failures []string
	switch {
	case call.Props.String("matches") != "":
		pattern, err := regexp.Compile(call.Props.String("matches"))
		if err != nil {
			return api.Partial{}, fmt.Errorf("invalid pattern: %w", err)
		}
		if !pattern.MatchString(fmt.Sprint(value)) {
			failures = append(failures, fmt.Sprintf("expected %s (%v) to match pattern %s", label, value, pattern))
		}
	case call.Props.Bool("strict"):
		failures = eval.Expect(label, value).ToBe(call.Props.Value("expected"))
	default:
		failures = eval.Expect(label, value).ToDeepEqual(call.Props.Value("expected"))
	}

	outcome := api.OutcomeSuccess
	if len(failures) > 0 {
		outcome = api.OutcomeFailure
	}
	return api.Partial{
		Outcome:  outcome,
		Failures: failures,
		Fields:   map[string]any{"actual": value},
	}, nil
}
