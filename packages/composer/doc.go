// Package composer holds the request form state and assembles it into a dispatchable
// descriptor.
//
// Build enforces the form rules: duplicate header and parameter names resolve to the
// last row, a NONE body type never sends a body, an invalid JSON body is a
// ValidationError, and bearer auth adds the Authorization header.
package composer
