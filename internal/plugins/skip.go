package plugins

import (
	"context"

	"scenarioctl/internal/api"
	"scenarioctl/internal/plugin"
)

func skipPlugin() plugin.Plugin {
	return plugin.Plugin{
		Pre: func(_ context.Context, _ api.Context, item api.Item, _ plugin.Loader) (api.Item, error) {
			item.Description = "[SKIP] " + item.Description
			return item, nil
		},
		Run: func(context.Context, plugin.Call) (api.Partial, error) {
			return api.Partial{}, nil
		},
	}
}
