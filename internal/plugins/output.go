package plugins

import (
	"context"
	"encoding/json"
	"fmt"

	"scenarioctl/internal/api"
	"scenarioctl/internal/plugin"
)

func outputPlugin() plugin.Plugin {
	return plugin.Plugin{
		Describe: func(it api.Item) string {
			label := plugin.Props(it.Props).String("label")
			if label == "" {
				label = it.Name
			}
			return "output " + label
		},
		RunProps: map[string]any{
			"label": "output",
			"value": "",
		},
		Run: func(_ context.Context, call plugin.Call) (api.Partial, error) {
			formatted, err := json.MarshalIndent(call.Props.Value("value"), "", "   ")
			if err != nil {
				return api.Partial{}, fmt.Errorf("formatting value: %w", err)
			}
			return api.Partial{Message: fmt.Sprintf("%s: %s", call.Props.String("label"), formatted)}, nil
		},
	}
}
