package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenarioctl/internal/api"
)

func TestMetricSet_GroupsByCategory(t *testing.T) {
	s := NewMetricSet()

	g := s.Add(api.MetricEntry{Name: "latency", ID: 1, Value: 10, Category: "timing"})
	assert.Equal(t, "timing", g.Category)
	assert.Len(t, g.Entries, 1)

	s.Add(api.MetricEntry{Name: "size", ID: 2, Value: 3, Category: "default"})
	g = s.Add(api.MetricEntry{Name: "latency", ID: 3, Value: 12, Category: "timing"})
	require.Len(t, g.Entries, 2)
	assert.Equal(t, 3, g.Entries[1].ID)

	groups := s.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "timing", groups[0].Category)
	assert.Equal(t, "default", groups[1].Category)
}

func TestMetricSet_ReturnsCopies(t *testing.T) {
	s := NewMetricSet()
	g := s.Add(api.MetricEntry{Name: "a", Category: "c"})
	g.Entries[0].Name = "changed"

	assert.Equal(t, "a", s.Groups()[0].Entries[0].Name)
}
