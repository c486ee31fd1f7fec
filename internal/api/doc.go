// Package api holds the vocabulary shared by every part of scenarioctl.
//
// It defines the values that flow between the loader, the runner, the job
// state hub, plugins and transports:
//
//   - Outcome: the ordered result classification (SUCCESS < SKIPPED < FAILURE < ERROR)
//   - NotificationType: the kinds of events published on a job
//   - Definition and Item: a raw scenario item and its preprocessed form
//   - Result, Subject and Partial: what running or skipping an item produces
//   - Meta, Progress and MetricEntry: the job level records kept by the hub
//
// The package has no dependencies on other internal packages so that it can be
// imported from anywhere without creating cycles.
package api
