// Package session keeps the signed-in state of the backend API: the bearer token with
// its user, and the selected organization. Both objects are injected where needed and
// persisted through the Store port.
package session
