package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetVerbose())
	assert.False(t, cfg.GetNoColor())
	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 500*time.Millisecond, cfg.AutosaveDuration())
	assert.Equal(t, "restore", cfg.CancelPolicy)
	assert.NoError(t, cfg.Validate())
}

func TestGettersOnZeroConfig(t *testing.T) {
	var cfg Config
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetVerbose())
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mocha.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apiUrl: https://api.example.com
timeout: 5000
followRedirects: false
storage: sqlite
cancelPolicy: reset
headers:
  X-Client: mocha
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, 5000, cfg.Timeout)
	assert.False(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.Equal(t, "sqlite", cfg.Storage)
	assert.Equal(t, "reset", cfg.CancelPolicy)
	assert.Equal(t, 10, cfg.MaxRedirects)
	// viper folds keys to lower case
	assert.Equal(t, "mocha", cfg.Headers["x-client"])
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mocha.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"apiUrl":"http://localhost:4000","verbose":true}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cfg.APIURL)
	assert.True(t, cfg.GetVerbose())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mocha.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apiUrl: http://from-file\ntimeout: 1000\n"), 0o644))

	t.Setenv("MOCHA_API_URL", "http://from-env")
	t.Setenv("MOCHA_VALIDATE_SSL", "false")
	t.Setenv("MOCHA_AUTOSAVE_DELAY", "250")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.APIURL)
	assert.Equal(t, 1000, cfg.Timeout)
	assert.False(t, cfg.GetValidateSSL())
	assert.Equal(t, 250*time.Millisecond, cfg.AutosaveDuration())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mocha.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: redis\ncancelPolicy: maybe\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage")
	assert.Contains(t, err.Error(), "cancelPolicy")
}

func TestFindConfigFile(t *testing.T) {
	empty := t.TempDir()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mocha.yaml"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mocha.json"), []byte("{}"), 0o644))

	assert.Equal(t, filepath.Join(dir, ".mocha.yaml"), FindConfigFile(empty, dir))
	assert.Empty(t, FindConfigFile(empty))
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1"}

	merged := base.Merge(&Config{
		APIURL:      "http://other",
		ValidateSSL: BoolPtr(false),
		Headers:     map[string]string{"B": "2"},
	})

	assert.Equal(t, "http://other", merged.APIURL)
	assert.False(t, merged.GetValidateSSL())
	assert.True(t, merged.GetFollowRedirects())
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers)
	assert.Equal(t, map[string]string{"A": "1"}, base.Headers)
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"mocha.yaml", "mocha.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.APIURL = "http://saved"
			require.NoError(t, cfg.SaveConfig(path))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, "http://saved", loaded.APIURL)
			assert.Equal(t, cfg.Timeout, loaded.Timeout)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/mocha"}
	dir, err := cfg.ResolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mocha", dir)
}
