// Package workspace reads and writes collections and single requests as YAML or JSON
// files. Documents are validated against a JSON schema before they are decoded.
package workspace
