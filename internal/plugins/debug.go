package plugins

import (
	"context"
	"encoding/json"

	"scenarioctl/internal/api"
	"scenarioctl/internal/plugin"
	"scenarioctl/pkg/logging"
)

func debugPlugin() plugin.Plugin {
	return plugin.Plugin{
		Pre: func(_ context.Context, c api.Context, item api.Item, _ plugin.Loader) (api.Item, error) {
			logging.Info("Debug", "PRE  debug %s context: %s", item.Name, pretty(c))
			logging.Info("Debug", "PRE  debug %s item: %s", item.Name, pretty(item))
			return item, nil
		},
		Run: func(_ context.Context, call plugin.Call) (api.Partial, error) {
			logging.Info("Debug", "RUN  debug %s: %s", call.Item.Name, pretty(call.Item))
			return api.Partial{}, nil
		},
	}
}

func pretty(v any) string {
	data, err := json.MarshalIndent(v, "", "   ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}
