package plugins

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"scenarioctl/internal/api"
	"scenarioctl/internal/eval"
	"scenarioctl/internal/plugin"
	"scenarioctl/internal/progress"
)

func delayPlugin() plugin.Plugin {
	return plugin.Plugin{
		Describe: func(it api.Item) string {
			return fmt.Sprintf("wait %sms", eval.PropText(it.Props, "milliseconds", "1000"))
		},
		RunProps: map[string]any{"milliseconds": 1000},
		Run:      runDelay,
	}
}

func runDelay(ctx context.Context, call plugin.Call) (api.Partial, error) {
	ms := call.Props.Float("milliseconds")
	d := call.Props.Millis("milliseconds")

	reporter := progress.Start(call.Runner.JobState(), call.Item.ID, progress.Options{Duration: d})
	defer reporter.Stop()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return api.Partial{Message: fmt.Sprintf("waited for %sms", strconv.FormatFloat(ms, 'f', -1, 64))}, nil
	case <-ctx.Done():
		return api.Partial{Outcome: api.OutcomeSkipped}, nil
	}
}
