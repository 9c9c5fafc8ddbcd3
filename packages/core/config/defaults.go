package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		APIURL:          "http://localhost:3000",
		Environment:     "",
		Timeout:         30000, // 30 seconds
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		Storage:         "file",
		AutosaveDelay:   500,
		CancelPolicy:    "restore",
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
		LogLevel:        "warn",
		LogFormat:       "text",
	}
}
