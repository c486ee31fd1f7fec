package progress

import (
	"sync"

	"scenarioctl/internal/api"
)

// MetricSet groups metric entries by category, in order of first use.
type MetricSet struct {
	mu     sync.Mutex
	groups []api.MetricGroup
	index  map[string]int
}

func NewMetricSet() *MetricSet {
	return &MetricSet{index: map[string]int{}}
}

// Add appends entry to its category group and returns a copy of the whole group.
func (s *MetricSet) Add(entry api.MetricEntry) api.MetricGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[entry.Category]
	if !ok {
		i = len(s.groups)
		s.index[entry.Category] = i
		s.groups = append(s.groups, api.MetricGroup{Category: entry.Category})
	}
	s.groups[i].Entries = append(s.groups[i].Entries, entry)
	return copyGroup(s.groups[i])
}

// Groups returns a copy of every group.
func (s *MetricSet) Groups() []api.MetricGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]api.MetricGroup, len(s.groups))
	for i, g := range s.groups {
		out[i] = copyGroup(g)
	}
	return out
}

func copyGroup(g api.MetricGroup) api.MetricGroup {
	return api.MetricGroup{
		Category: g.Category,
		Entries:  append([]api.MetricEntry(nil), g.Entries...),
	}
}
