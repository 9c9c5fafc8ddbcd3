package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the mocha configuration
type Config struct {
	APIURL          string            `json:"apiUrl,omitempty" yaml:"apiUrl,omitempty" mapstructure:"apiUrl"`
	Environment     string            `json:"environment,omitempty" yaml:"environment,omitempty" mapstructure:"environment"`
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"` // milliseconds
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty" mapstructure:"followRedirects"`
	MaxRedirects    int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty" mapstructure:"maxRedirects"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty" mapstructure:"validateSSL"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty" mapstructure:"proxy"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" mapstructure:"headers"` // Default headers for all requests
	Storage         string            `json:"storage,omitempty" yaml:"storage,omitempty" mapstructure:"storage"` // file, sqlite or memory
	DataDir         string            `json:"dataDir,omitempty" yaml:"dataDir,omitempty" mapstructure:"dataDir"`
	AutosaveDelay   int               `json:"autosaveDelay,omitempty" yaml:"autosaveDelay,omitempty" mapstructure:"autosaveDelay"` // milliseconds
	CancelPolicy    string            `json:"cancelPolicy,omitempty" yaml:"cancelPolicy,omitempty" mapstructure:"cancelPolicy"`   // restore or reset
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty" mapstructure:"verbose"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty" mapstructure:"noColor"`
	LogLevel        string            `json:"logLevel,omitempty" yaml:"logLevel,omitempty" mapstructure:"logLevel"`
	LogFormat       string            `json:"logFormat,omitempty" yaml:"logFormat,omitempty" mapstructure:"logFormat"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func (c *Config) AutosaveDuration() time.Duration {
	return time.Duration(c.AutosaveDelay) * time.Millisecond
}

// ResolveDataDir returns DataDir, or the per-user default when it is empty.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine data directory: %w", err)
	}
	return filepath.Join(base, "mocha"), nil
}

// Validate rejects values the rest of the program cannot interpret.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage {
	case "", "file", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage: unknown backend %q", c.Storage))
	}
	switch c.CancelPolicy {
	case "", "restore", "reset":
	default:
		errs = append(errs, fmt.Errorf("cancelPolicy: unknown policy %q", c.CancelPolicy))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logFormat: unknown format %q", c.LogFormat))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout: must not be negative"))
	}
	if c.AutosaveDelay < 0 {
		errs = append(errs, errors.New("autosaveDelay: must not be negative"))
	}
	return errors.Join(errs...)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"mocha.yaml",
	"mocha.yml",
	".mocha.yaml",
	".mocha.yml",
	"mocha.json",
}

// envBindings maps config keys to their environment variables.
var envBindings = map[string]string{
	"apiUrl":          "MOCHA_API_URL",
	"environment":     "MOCHA_ENV",
	"timeout":         "MOCHA_TIMEOUT",
	"followRedirects": "MOCHA_FOLLOW_REDIRECTS",
	"maxRedirects":    "MOCHA_MAX_REDIRECTS",
	"validateSSL":     "MOCHA_VALIDATE_SSL",
	"proxy":           "MOCHA_PROXY",
	"storage":         "MOCHA_STORAGE",
	"dataDir":         "MOCHA_DATA_DIR",
	"autosaveDelay":   "MOCHA_AUTOSAVE_DELAY",
	"cancelPolicy":    "MOCHA_CANCEL_POLICY",
	"verbose":         "MOCHA_VERBOSE",
	"noColor":         "MOCHA_NO_COLOR",
	"logLevel":        "MOCHA_LOG_LEVEL",
	"logFormat":       "MOCHA_LOG_FORMAT",
}

// SearchDirs are the directories searched for a config file, in order.
func SearchDirs() []string {
	dirs := []string{"."}
	if base, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(base, "mocha"))
	}
	return dirs
}

// LoadConfig loads configuration from the specified path or searches for config files.
// Environment variables override file values.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = FindConfigFile(SearchDirs()...)
	}
	return load(viper.New(), path)
}

// FindConfigFile returns the first config file found in dirs, or "".
func FindConfigFile(dirs ...string) string {
	for _, dir := range dirs {
		for _, filename := range ConfigFilenames {
			configPath := filepath.Join(dir, filename)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}
	}
	return ""
}

func load(v *viper.Viper, path string) (*Config, error) {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.APIURL != "" {
		result.APIURL = other.APIURL
	}
	if other.Environment != "" {
		result.Environment = other.Environment
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Storage != "" {
		result.Storage = other.Storage
	}
	if other.DataDir != "" {
		result.DataDir = other.DataDir
	}
	if other.AutosaveDelay > 0 {
		result.AutosaveDelay = other.AutosaveDelay
	}
	if other.CancelPolicy != "" {
		result.CancelPolicy = other.CancelPolicy
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		result.LogFormat = other.LogFormat
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig writes the configuration to path, as JSON for a .json file and YAML
// otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
