// Package config handles configuration loading and management for mocha.
//
// It provides functionality for:
//   - Loading configuration from mocha.yaml, .mocha.yaml or mocha.json through viper
//   - MOCHA_* environment variable overrides
//   - Default configuration values
package config
