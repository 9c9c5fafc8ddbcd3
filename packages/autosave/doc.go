// Package autosave commits edits after a quiet period.
//
// Edits update local state right away; the Debouncer only decides when the persistence
// call runs. Each key has its own trailing-edge timer that is cancelled and rescheduled
// on every edit.
package autosave
