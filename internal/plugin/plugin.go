package plugin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"scenarioctl/internal/api"
)

// Hook runs or skips an item.
type Hook func(ctx context.Context, call Call) (api.Partial, error)

// PreHook preprocesses an item. The item arrives with its merged context, its
// name and id assigned and its PreProps resolved into Props.
type PreHook func(ctx context.Context, c api.Context, item api.Item, l Loader) (api.Item, error)

// Plugin implements one item type. Every field is optional.
type Plugin struct {
	PreProps map[string]any
	Describe func(item api.Item) string
	Pre      PreHook
	RunProps map[string]any
	Run      Hook
	Skip     Hook
}

// Call is what Run and Skip hooks receive.
type Call struct {
	Item   api.Item
	Props  Props
	Runner Runner
}

// JobState is the part of a job that plugins may use.
type JobState interface {
	Notify(typ api.NotificationType, payload any)
	Subscribe(typ api.NotificationType, fn api.Subscriber) func()
	Done() <-chan struct{}
}

// Runner is the execution engine as seen from plugins.
type Runner interface {
	// JobState returns the job being run.
	JobState() JobState
	// Prop resolves a property of item against its context and the current $results.
	Prop(item api.Item, name string, fallback any) (any, error)
	// Interpret evaluates an expression against c and the current $results.
	Interpret(c api.Context, expression string) (any, error)
	// Run runs item, or skips it if the job was cancelled.
	Run(ctx context.Context, item api.Item) api.Result
	// Skip skips item.
	Skip(ctx context.Context, item api.Item) api.Result
}

// Loader loads and preprocesses scenario definitions.
type Loader interface {
	// Load reads the definition referenced by ref, relative to the $baseDir of c.
	// The returned context carries the $fileName and $baseDir of the loaded file.
	Load(ctx context.Context, c api.Context, ref string) (api.Context, api.Definition, error)
	// Pre preprocesses def as a child of context c.
	Pre(ctx context.Context, c api.Context, def api.Definition) (api.Item, error)
}

// Props are the resolved properties passed to Run and Skip.
type Props map[string]any

func (p Props) Value(key string) any {
	return p[key]
}

func (p Props) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (p Props) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (p Props) Float(key string) float64 {
	switch v := p[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func (p Props) Int(key string) int {
	return int(p.Float(key))
}

// Millis reads a number of milliseconds.
func (p Props) Millis(key string) time.Duration {
	return time.Duration(p.Float(key) * float64(time.Millisecond))
}

func (p Props) Map(key string) map[string]any {
	return api.AsMap(p[key])
}
