package plugins

import (
	"context"
	"fmt"

	"scenarioctl/internal/api"
	"scenarioctl/internal/eval"
	"scenarioctl/internal/plugin"
)

func includePlugin() plugin.Plugin {
	return plugin.Plugin{
		PreProps: map[string]any{
			"src":         eval.Required,
			"name":        "",
			"description": "",
		},
		Pre: preInclude,
	}
}

// preInclude replaces the include item with the preprocessed item of the
// referenced file. An explicit name or description of the include wins.
func preInclude(ctx context.Context, c api.Context, item api.Item, l plugin.Loader) (api.Item, error) {
	props := plugin.Props(item.Props)
	src := props.String("src")
	def := api.Definition{"name": item.Name, "type": item.Type}

	fileContext, included, err := l.Load(ctx, c.With(api.KeyLoader, "include"), src)
	if err != nil {
		return api.Item{}, api.NewItemError(fmt.Errorf("loading %s: %w", src, err), c, def)
	}

	result, err := l.Pre(ctx, fileContext, included)
	if err != nil {
		return api.Item{}, err
	}
	if name := props.String("name"); name != "" {
		result.Name = name
	}
	if description := props.String("description"); description != "" {
		result.Description = description
	}
	return result, nil
}
