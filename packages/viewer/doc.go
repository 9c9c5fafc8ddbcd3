// Package viewer implements the response pane: a small state machine over the last
// snapshot of the active request and the colour class of its status.
package viewer
