// Package dispatch performs single outbound calls for an editor and keeps the last
// response of every request.
//
// A Dispatcher owns one cancellation handle: beginning a dispatch aborts the previous
// one, and every result carries a sequence number so callers can drop stale answers.
// Each result is classified as a response, a network error or a cancellation.
package dispatch
