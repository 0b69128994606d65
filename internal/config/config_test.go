package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv はテスト中に参照される環境変数を空にします。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GAZETTE_API_KEY", "GAZETTE_PAGES", "GAZETTE_CONCURRENCY", "GAZETTE_LOG_LEVEL", "GAZETTE_PROXY_ENDPOINT", "GAZETTE_OUTPUT_FORMAT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.APIKey)
	assert.Equal(t, 15, cfg.Pages)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "G105000000", cfg.CategoryCode)
	assert.Equal(t, DiscoveryHTML, cfg.Discovery)
	assert.Equal(t, 6, cfg.Concurrency)
	assert.Equal(t, 1.0, cfg.RateLimit)
	assert.Equal(t, 2, cfg.RateBurst)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.Equal(t, "csv", cfg.OutputFormat)
	assert.Equal(t, "http://api.scraperapi.com/", cfg.ProxyEndpoint)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}

func TestLoad_INI(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.ini", `
[Api]
api_key = secret-key

[Crawl]
pages = 3
discovery = feed

[HTTP]
timeout = 5s

[Output]
format = JSONL
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.APIKey)
	assert.Equal(t, 3, cfg.Pages)
	assert.Equal(t, DiscoveryFeed, cfg.Discovery)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "jsonl", cfg.OutputFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultINIInWorkingDirectory(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("[Api]\napi_key = from-cwd\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-cwd", cfg.APIKey)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
api:
  api_key: yaml-key
crawl:
  concurrency: 2
output:
  format: jsonl
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml-key", cfg.APIKey)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "jsonl", cfg.OutputFormat)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.ini", "[Api]\napi_key = file-key\n")
	t.Setenv("GAZETTE_API_KEY", "env-key")
	t.Setenv("GAZETTE_PAGES", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 7, cfg.Pages)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIKey:       "k",
			Pages:        1,
			Concurrency:  1,
			Discovery:    DiscoveryHTML,
			OutputFormat: "csv",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"blank api key", func(c *Config) { c.APIKey = "   " }, true},
		{"zero pages", func(c *Config) { c.Pages = 0 }, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"unknown discovery", func(c *Config) { c.Discovery = "sitemap" }, true},
		{"unknown format", func(c *Config) { c.OutputFormat = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
