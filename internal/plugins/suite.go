package plugins

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"scenarioctl/internal/api"
	"scenarioctl/internal/plugin"
	"scenarioctl/internal/progress"
)

var errSuiteItem = errors.New("suite items must be item definitions")

func suitePlugin() plugin.Plugin {
	return plugin.Plugin{
		PreProps: map[string]any{"items": []any{}},
		Pre:      preSuite,
		Run:      runSuite,
		Skip:     skipSuite,
	}
}

func preSuite(ctx context.Context, c api.Context, item api.Item, l plugin.Loader) (api.Item, error) {
	raw, _ := item.Props["items"].([]any)
	parent := c.With(api.KeyLoader, "suite")

	children := make([]api.Item, 0, len(raw))
	for _, r := range raw {
		def := api.AsMap(r)
		if def == nil {
			return api.Item{}, api.NewItemError(errSuiteItem, parent, api.Definition{"name": item.Name, "type": item.Type})
		}
		child, err := l.Pre(ctx, parent, def)
		if err != nil {
			return api.Item{}, err
		}
		children = append(children, child)
	}

	item.Items = children
	delete(item.Props, "items")
	return item, nil
}

// stopAfter reads the outcome after which a suite stops. Without setting it is
// ERROR; false disables stopping.
func stopAfter(c api.Context) (api.Outcome, bool, error) {
	switch v := c[api.KeyStopAfter].(type) {
	case nil:
		return api.OutcomeError, true, nil
	case bool:
		if !v {
			return "", false, nil
		}
		return api.OutcomeError, true, nil
	case string:
		if v == "" {
			return api.OutcomeError, true, nil
		}
		o, err := api.ParseOutcome(v)
		if err != nil {
			return "", false, fmt.Errorf("context %s: %w", api.KeyStopAfter, err)
		}
		return o, true, nil
	}
	return "", false, fmt.Errorf("context %s: unexpected value %v", api.KeyStopAfter, c[api.KeyStopAfter])
}

func runSuite(ctx context.Context, call plugin.Call) (api.Partial, error) {
	items := call.Item.Items
	n := len(items)
	threshold, stops, err := stopAfter(call.Item.Context)
	if err != nil {
		return api.Partial{}, err
	}

	var mu sync.Mutex
	current := 0.0
	setProgress := func(p float64) {
		mu.Lock()
		current = p
		mu.Unlock()
	}

	results := make([]api.Result, 0, n)
	if n > 0 {
		job := call.Runner.JobState()
		reporter := progress.Start(job, call.Item.ID, progress.Options{
			Probe: func() float64 {
				mu.Lock()
				defer mu.Unlock()
				return current
			},
		})
		defer reporter.Stop()

		position := make(map[int]int, n)
		for i, it := range items {
			position[it.ID] = i
		}
		unsubscribe := job.Subscribe(api.NotifyProgress, func(payload any) {
			p, ok := payload.(api.Progress)
			if !ok {
				return
			}
			if i, ok := position[p.ID]; ok {
				setProgress((float64(i) + p.Progress) / float64(n))
				reporter.Update()
			}
		})
		defer unsubscribe()

		for i, it := range items {
			res := call.Runner.Run(ctx, it)
			results = append(results, res)
			setProgress(float64(i+1) / float64(n))
			reporter.Update()
			if stops && res.Outcome.AtLeast(threshold) {
				break
			}
		}
	}

	for _, it := range items[len(results):] {
		results = append(results, call.Runner.Skip(ctx, it))
	}

	return summarize(results, func() (any, error) {
		return call.Runner.Prop(call.Item, "export", nil)
	})
}

func summarize(results []api.Result, export func() (any, error)) (api.Partial, error) {
	successes := 0
	failures := []string{}
	errs := []string{}
	for i, r := range results {
		switch r.Outcome {
		case api.OutcomeSuccess:
			successes++
		case api.OutcomeFailure:
			failures = append(failures, fmt.Sprintf("item %d (%s) failed", i, r.Subject.Name))
		case api.OutcomeError:
			errs = append(errs, fmt.Sprintf("item %d (%s) errored", i, r.Subject.Name))
		}
	}

	outcome := api.OutcomeFailure
	switch {
	case len(errs) > 0:
		outcome = api.OutcomeError
	case successes == len(results):
		outcome = api.OutcomeSuccess
	}

	var exported any
	if outcome != api.OutcomeError {
		v, err := export()
		if err != nil {
			return api.Partial{}, fmt.Errorf("export: %w", err)
		}
		exported = v
	}

	return api.Partial{
		Outcome:  outcome,
		Message:  fmt.Sprintf("%d/%d successful", successes, len(results)),
		Failures: failures,
		Errors:   errs,
		Fields:   map[string]any{"export": exported},
	}, nil
}

func skipSuite(ctx context.Context, call plugin.Call) (api.Partial, error) {
	for _, it := range call.Item.Items {
		call.Runner.Skip(ctx, it)
	}
	return api.Partial{}, nil
}
