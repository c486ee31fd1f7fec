package plugins

import (
	"context"
	"maps"

	"scenarioctl/internal/api"
	"scenarioctl/internal/eval"
	"scenarioctl/internal/plugin"
)

func assignPlugin() plugin.Plugin {
	return plugin.Plugin{
		Describe: func(it api.Item) string {
			if valueText := eval.PropText(it.Props, "value", ""); valueText != "" {
				return "assign " + valueText + " to $result.value"
			}
			return "copy " + eval.PropText(it.Props, "properties", "{}") + " to $result"
		},
		RunProps: map[string]any{
			"value":      "",
			"properties": map[string]any{},
		},
		Run: func(_ context.Context, call plugin.Call) (api.Partial, error) {
			fields := map[string]any{"value": call.Props.Value("value")}
			maps.Copy(fields, call.Props.Map("properties"))
			return api.Partial{Outcome: api.OutcomeSuccess, Fields: fields}, nil
		},
	}
}
