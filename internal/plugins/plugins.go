package plugins

import (
	"scenarioctl/internal/plugin"
)

// Builtin returns the built-in plugins keyed by item type.
func Builtin() map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		"suite":        suitePlugin(),
		"include":      includePlugin(),
		"delay":        delayPlugin(),
		"expect":       expectPlugin(),
		"assign":       assignPlugin(),
		"output":       outputPlugin(),
		"skip":         skipPlugin(),
		"debug":        debugPlugin(),
		"metric":       metricPlugin(),
		"request":      requestPlugin(),
		"nats-publish": natsPublishPlugin(),
	}
}
