// Package runner dispatches the saved requests of a collection one after another.
//
// It provides functionality for:
//   - Running a whole collection or a folder subtree in sidebar order
//   - Repeating the run for a number of iterations
//   - Pacing dispatches with a rate limit
//   - Stopping on the first failure (bail) or on cancellation
//   - Latency percentiles from an HDR histogram and per-outcome counts
//   - Recording every dispatch in the history store
package runner
