// Package report presents the results of a job: as an indented tree on the
// console, as a JSON document and as JUnit XML for CI systems.
//
// Results arrive from the job as a flat list. ResultTrees arranges them along
// the item tree before any of the reporters run.
package report
