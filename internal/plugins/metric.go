package plugins

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"scenarioctl/internal/api"
	"scenarioctl/internal/eval"
	"scenarioctl/internal/plugin"
)

func metricPlugin() plugin.Plugin {
	return plugin.Plugin{
		Describe: func(it api.Item) string {
			return fmt.Sprintf("Metric for %s of type %s",
				eval.PropText(it.Props, "name", it.Name), eval.PropText(it.Props, "metricType", "GAUGE"))
		},
		RunProps: map[string]any{
			"category":   "default",
			"color":      "orange",
			"label":      "",
			"metricType": "GAUGE",
			"metricData": nil,
		},
		Run: runMetric,
	}
}

// runMetric publishes metricData[label] under the category of the item.
func runMetric(_ context.Context, call plugin.Call) (api.Partial, error) {
	label := call.Props.String("label")
	metricType := call.Props.String("metricType")
	data := call.Props.Map("metricData")
	value := data[label]

	call.Runner.JobState().Notify(api.NotifyMetric, api.MetricEntry{
		Name:       call.Item.Name,
		Color:      call.Props.String("color"),
		ID:         call.Item.ID,
		Label:      label,
		MetricType: metricType,
		Value:      value,
		Category:   call.Props.String("category"),
	})

	return api.Partial{
		Outcome: api.OutcomeSuccess,
		Message: fmt.Sprintf("The metric %s of type %s has value %.2f.", call.Item.Name, metricType, numeric(value)),
		Fields: map[string]any{
			"name":       call.Item.Name,
			"metricType": metricType,
			"label":      label,
			"value":      value,
			"metricData": data,
		},
	}, nil
}

func numeric(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float64:
		return x
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}
