package runner

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"scenarioctl/internal/api"
	"scenarioctl/internal/eval"
	"scenarioctl/internal/plugin"
	"scenarioctl/pkg/logging"
)

// Job is the job state the engine runs against.
type Job interface {
	plugin.JobState
	ID() string
	Items() []api.Item
	Cancelled() <-chan struct{}
}

// Observer is told about execution events, for instrumentation.
type Observer interface {
	JobStarted(jobID string)
	ItemFinished(jobID string, result api.Result)
	JobFinished(jobID string, outcome api.Outcome, duration time.Duration)
}

// Engine runs jobs with the plugins of a registry.
type Engine struct {
	registry *plugin.Registry
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports execution events to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// New creates an engine.
func New(registry *plugin.Registry, opts ...Option) *Engine {
	e := &Engine{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunJob runs the items of job in order and finishes the job. It returns true
// if the job outcome is SUCCESS.
func (e *Engine) RunJob(ctx context.Context, job Job) bool {
	start := time.Now()
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-job.Cancelled():
			logging.Info("Runner", "Job %s cancelled", job.ID())
			cancel()
		case <-jobCtx.Done():
		}
	}()

	if e.observer != nil {
		e.observer.JobStarted(job.ID())
	}

	r := &jobRun{engine: e, job: job, results: newResultLog()}
	var outcomes []api.Outcome
	for _, item := range job.Items() {
		res := r.Run(jobCtx, item)
		outcomes = append(outcomes, res.Outcome)
	}

	outcome := api.WorstOf(outcomes...)
	finished := time.Now()
	job.Notify(api.NotifyMeta, api.Meta{Outcome: outcome, Finished: &finished})

	if e.observer != nil {
		e.observer.JobFinished(job.ID(), outcome, time.Since(start))
	}
	logging.Info("Runner", "Job %s finished with outcome %s", job.ID(), outcome)
	return outcome == api.OutcomeSuccess
}

// jobRun is the runner handed to plugins for one job.
type jobRun struct {
	engine  *Engine
	job     Job
	results *resultLog
}

func (r *jobRun) JobState() plugin.JobState {
	return r.job
}

func (r *jobRun) Prop(item api.Item, name string, fallback any) (any, error) {
	return eval.Prop(eval.OwnerOf(item), item.Props, name, fallback, r.bindings(item.Context))
}

func (r *jobRun) Interpret(c api.Context, expression string) (any, error) {
	if expression == "" {
		return nil, nil
	}
	return eval.Interpret(expression, r.bindings(c))
}

func (r *jobRun) Run(ctx context.Context, item api.Item) api.Result {
	return r.execute(ctx, item, r.cancelled(ctx))
}

// cancelled reports whether items starting now must be skipped.
func (r *jobRun) cancelled(ctx context.Context) bool {
	select {
	case <-r.job.Cancelled():
		return true
	default:
		return ctx.Err() != nil
	}
}

func (r *jobRun) Skip(ctx context.Context, item api.Item) api.Result {
	return r.execute(ctx, item, true)
}

func (r *jobRun) bindings(c api.Context) map[string]any {
	b := make(map[string]any, len(c)+1)
	maps.Copy(b, c)
	b[api.KeyResults] = r.results.snapshot()
	return b
}

func (r *jobRun) execute(ctx context.Context, item api.Item, skip bool) api.Result {
	startTime := time.Now()

	partial, skipped, err := r.invoke(ctx, item, skip)

	result := baseResult(item, skipped, startTime)
	if partial.Outcome != "" {
		result.Outcome = partial.Outcome
	}
	if partial.Failures != nil {
		result.Failures = partial.Failures
	}
	if partial.Errors != nil {
		result.Errors = partial.Errors
	}
	result.Fields = partial.Fields
	if err != nil {
		result.Outcome = api.OutcomeError
		result.Errors = append(result.Errors, err.Error())
		logging.Debug("Runner", "Item %s (%s) errored: %v", item.Name, item.Type, err)
	}
	result.Message = partial.Message
	if result.Message == "" {
		result.Message = result.Outcome.Lower()
	}

	r.results.put(item.Name, result)
	r.job.Notify(api.NotifyResult, result)
	if r.engine.observer != nil {
		r.engine.observer.ItemFinished(r.job.ID(), result)
	}
	return result
}

// invoke calls the run or skip hook. It reports whether the item ended up skipped.
func (r *jobRun) invoke(ctx context.Context, item api.Item, skip bool) (partial api.Partial, skipped bool, err error) {
	skipped = skip
	if item.Context == nil {
		return api.Partial{}, skipped, api.NewItemError(api.ErrMissingContext, api.Context{}, itemDefinition(item))
	}

	p, ok := r.engine.registry.Lookup(item.Type)
	if !ok {
		return api.Partial{}, skipped, api.NewItemError(api.ErrUnknownType, item.Context, itemDefinition(item))
	}

	var props map[string]any
	if skip {
		props = maps.Clone(p.RunProps)
	} else {
		defaults := map[string]any{"enabled": true}
		maps.Copy(defaults, p.RunProps)
		props, err = eval.ExtractProps(eval.OwnerOf(item), item.Props, defaults, r.bindings(item.Context))
		if err != nil {
			return api.Partial{}, skipped, err
		}
		if enabled, ok := props["enabled"].(bool); ok && !enabled {
			skipped = true
		}
	}

	hook := p.Run
	if skipped {
		hook = p.Skip
	}
	if hook == nil {
		return api.Partial{}, skipped, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin %s panicked: %v", item.Type, rec)
		}
	}()
	partial, err = hook(ctx, plugin.Call{Item: item, Props: props, Runner: r})
	return partial, skipped, err
}

func baseResult(item api.Item, skipped bool, startTime time.Time) api.Result {
	outcome := api.OutcomeSuccess
	if skipped {
		outcome = api.OutcomeSkipped
	}
	role := item.Context.String(api.KeyRole)
	if role == "" {
		role = api.DefaultRole
	}
	return api.Result{
		Subject: api.Subject{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Role:        role,
			SourceFile:  SourceFile(item.Context.String(api.KeyFileName)),
			Type:        item.Type,
		},
		Outcome:    outcome,
		StartTime:  startTime,
		DurationMs: float64(time.Since(startTime)) / float64(time.Millisecond),
		Failures:   []string{},
		Errors:     []string{},
	}
}

// SourceFile shortens a scenario file name to its last three path segments.
func SourceFile(fileName string) string {
	if fileName == "" {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(fileName), "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return filepath.FromSlash(strings.Join(parts, "/"))
}

func itemDefinition(item api.Item) api.Definition {
	return api.Definition{"name": item.Name, "type": item.Type}
}

// resultLog holds the results of a job by item name. A later result for the
// same name replaces the earlier one.
type resultLog struct {
	mu      sync.Mutex
	results map[string]api.Result
}

func newResultLog() *resultLog {
	return &resultLog{results: map[string]api.Result{}}
}

func (l *resultLog) put(name string, r api.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results[name] = r
}

// snapshot returns the results as plain data for expressions.
func (l *resultLog) snapshot() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]any, len(l.results))
	for name, r := range l.results {
		out[name] = r.Value()
	}
	return out
}
