// Package env handles environments and variable interpolation.
//
// It provides functionality for:
//   - Editing the per-collection environments document (variables and their values)
//   - Variable interpolation using {{variable}} syntax
//   - Built-in function evaluation (uuid, timestamp, random, etc.)
//   - Loading .env files
package env
