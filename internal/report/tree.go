package report

import (
	"scenarioctl/internal/api"
)

// ResultTrees nests results along the item tree: every result carries the
// results of the item's children in Nested. Items without a result are left
// out.
func ResultTrees(items []api.Item, results []api.Result) []api.Result {
	byID := make(map[int]api.Result, len(results))
	for _, r := range results {
		byID[r.Subject.ID] = r
	}
	return nest(items, byID)
}

func nest(items []api.Item, byID map[int]api.Result) []api.Result {
	var out []api.Result
	for _, it := range items {
		r, ok := byID[it.ID]
		if !ok {
			continue
		}
		r.Nested = nest(it.Items, byID)
		out = append(out, r)
	}
	return out
}

// Counts tallies outcomes over results, not descending into nested results.
type Counts struct {
	Success int
	Skipped int
	Failure int
	Error   int
}

func (c Counts) Total() int {
	return c.Success + c.Skipped + c.Failure + c.Error
}

func Count(results []api.Result) Counts {
	var c Counts
	for _, r := range results {
		switch r.Outcome {
		case api.OutcomeSuccess:
			c.Success++
		case api.OutcomeSkipped:
			c.Skipped++
		case api.OutcomeFailure:
			c.Failure++
		case api.OutcomeError:
			c.Error++
		}
	}
	return c
}
