package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorstOf(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []Outcome
		expected Outcome
	}{
		{"empty", nil, OutcomeSuccess},
		{"all success", []Outcome{OutcomeSuccess, OutcomeSuccess}, OutcomeSuccess},
		{"skipped beats success", []Outcome{OutcomeSuccess, OutcomeSkipped}, OutcomeSkipped},
		{"failure beats skipped", []Outcome{OutcomeSkipped, OutcomeFailure, OutcomeSuccess}, OutcomeFailure},
		{"error beats everything", []Outcome{OutcomeError, OutcomeFailure, OutcomeSkipped}, OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WorstOf(tt.outcomes...))
		})
	}
}

func TestOutcome_AtLeast(t *testing.T) {
	assert.True(t, OutcomeError.AtLeast(OutcomeError))
	assert.True(t, OutcomeFailure.AtLeast(OutcomeSkipped))
	assert.False(t, OutcomeFailure.AtLeast(OutcomeError))
	assert.False(t, OutcomeSuccess.AtLeast(OutcomeSkipped))
}

func TestParseOutcome(t *testing.T) {
	o, err := ParseOutcome("failure")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailure, o)

	_, err = ParseOutcome("BROKEN")
	assert.Error(t, err)
}

func TestOutcome_Lower(t *testing.T) {
	assert.Equal(t, "skipped", OutcomeSkipped.Lower())
}
