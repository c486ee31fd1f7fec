// Package plugin defines how item types are implemented.
//
// A Plugin is a set of optional hooks keyed by item type in a Registry:
//
//   - PreProps: properties extracted before preprocessing (no $results yet)
//   - Describe: a default description for items that have none
//   - Pre: turns a definition into an executable item, for example by
//     preprocessing nested definitions or loading referenced files
//   - RunProps: properties extracted right before the item runs, with $results
//   - Run: executes the item and returns its contribution to the result
//   - Skip: called instead of Run for disabled items and cancelled jobs
//
// Missing hooks pass data through unchanged. Hooks receive the capabilities
// they need through the Loader and Runner interfaces declared here, so that
// plugins never depend on the concrete loader or runner.
package plugin
