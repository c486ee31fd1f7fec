// Package progress estimates and publishes the progress of running items, and
// aggregates the metric entries they publish by category.
package progress
