// Package runner executes the items of a job.
//
// The top-level items of a job run strictly one after the other. Every item
// that is run or skipped produces exactly one api.Result, which is recorded in
// the job's $results under the item name and published as a RESULT
// notification. Plugin errors never escape: they turn into ERROR results.
//
// A CANCEL notification on the job cancels the context passed to plugins, and
// every item that has not started yet is skipped instead of run. When all
// top-level items are done, a META notification publishes the worst outcome
// and the finish time.
package runner
