// Package plugins contains the built-in item types.
//
//   - suite: runs nested items in order, stopping after a configurable outcome
//   - include: preprocesses the scenario file referenced by src in place
//   - delay: waits for a number of milliseconds
//   - expect: checks a value against an expected value or a pattern
//   - assign: stores values in the result, for later expressions
//   - output: prints a value into the result message
//   - skip: never runs anything
//   - debug: logs its context and properties
//   - metric: publishes a metric entry on the job
//   - request: performs an HTTP request and validates the response
//   - nats-publish: publishes a message on a NATS subject
//
// Builtin returns all of them keyed by type.
package plugins
