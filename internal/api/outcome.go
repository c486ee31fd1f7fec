package api

import (
	"fmt"
	"strings"
)

// Outcome classifies the result of an item or a job.
type Outcome string

const (
	// OutcomeSuccess indicates that an item ran and all of its expectations held
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomeSkipped indicates that an item was not run
	OutcomeSkipped Outcome = "SKIPPED"
	// OutcomeFailure indicates that an expectation did not hold
	OutcomeFailure Outcome = "FAILURE"
	// OutcomeError indicates that an item could not be run as configured
	OutcomeError Outcome = "ERROR"
)

var severities = map[Outcome]int{
	OutcomeSuccess: 0,
	OutcomeSkipped: 1,
	OutcomeFailure: 2,
	OutcomeError:   3,
}

// Severity returns the rank of the outcome. Unknown outcomes rank below SUCCESS.
func (o Outcome) Severity() int {
	if s, ok := severities[o]; ok {
		return s
	}
	return -1
}

// AtLeast reports whether o is as severe as threshold or worse.
func (o Outcome) AtLeast(threshold Outcome) bool {
	return o.Severity() >= threshold.Severity()
}

// Valid reports whether o is one of the four known outcomes.
func (o Outcome) Valid() bool {
	_, ok := severities[o]
	return ok
}

// Lower returns the outcome as a lower case word, used as default result message.
func (o Outcome) Lower() string {
	return strings.ToLower(string(o))
}

// WorstOf returns the most severe of the given outcomes, or SUCCESS if there are none.
func WorstOf(outcomes ...Outcome) Outcome {
	worst := OutcomeSuccess
	for _, o := range outcomes {
		if o.Severity() > worst.Severity() {
			worst = o
		}
	}
	return worst
}

// ParseOutcome parses an outcome name case-insensitively.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", fmt.Errorf("unknown outcome %q", s)
	}
	return o, nil
}
