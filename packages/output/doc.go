// Package output renders responses, collection trees and run summaries.
//
// Supported output formats:
//   - Console: colored terminal output, JSON bodies pretty printed
//   - JSON: machine readable responses and run summaries
//   - JUnit: JUnit XML of a collection run for CI integration
//
// Response bodies can be narrowed with a gjson path before they are printed.
package output
