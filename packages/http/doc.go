// Package http provides the HTTP client used to dispatch composed requests.
//
// It wraps the standard library's http package with:
//   - Configurable timeouts, redirects, TLS validation and proxy
//   - Context-aware dispatch so in-flight requests can be cancelled
//   - A plain request descriptor with query parameter merging
//   - Response helpers for status ranges, headers and JSON bodies
package http
