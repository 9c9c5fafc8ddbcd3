// Package cmd implements the mocha CLI commands using Cobra.
//
// Available commands:
//   - send: Compose and dispatch a request, ad hoc, from a file or from a collection
//   - login, logout, whoami, signup, name: Manage the session with the backend
//   - org: List and select organizations
//   - collections, requests, env: Edit collections, their request tree and environments
//   - import, export: Convert cURL, Insomnia and OpenAPI files and collection documents
//   - run: Dispatch every request of a collection or folder
//   - history: Show past dispatches
//   - mock: Serve an in-memory backend
//   - tui: Open the terminal request editor
//   - init, validate, version, completion
//
// Flags default from MOCHA_* environment variables, and .env files are loaded before
// the configuration is resolved.
package cmd
