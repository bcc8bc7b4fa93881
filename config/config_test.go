package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFile(t *testing.T, content string) (Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mdbatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, "https://www.cisco.com", cfg.CanonicalHost)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"markdown"}, cfg.Formats)
	assert.True(t, cfg.Sanitize)
}

func TestLoadReadsFile(t *testing.T) {
	cfg, err := loadFile(t, `
output_dir: out
concurrency: 2
canonical_host: https://docs.example.com/
formats: [PDF, json, markdown, pdf]
http_timeout: 5s
max_retries: 0
notify: LOG
per_task_image_names: true
sanitize: false
log_level: debug
`)
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "images", cfg.ImagesDir)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, []string{"markdown", "pdf", "json"}, cfg.Formats)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, "log", cfg.Notify)
	assert.True(t, cfg.PerTaskImageNames)
	assert.False(t, cfg.Sanitize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("MDBATCH_CONCURRENCY", "9")
	t.Setenv("MDBATCH_FORMATS", "json")

	path := filepath.Join(t.TempDir(), "mdbatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 3\n"), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MDBATCH")
	v.AutomaticEnv()
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Concurrency)
	assert.Equal(t, []string{"markdown", "json"}, cfg.Formats)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero concurrency":  "concurrency: 0\n",
		"negative retries":  "max_retries: -1\n",
		"zero timeout":      "http_timeout: 0s\n",
		"unknown format":    "formats: [docx]\n",
		"unknown notifier":  "notify: popup\n",
		"relative host":     "canonical_host: www.cisco.com\n",
		"unknown log level": "log_level: loud\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadFile(t, content)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeFormats(t *testing.T) {
	assert.Equal(t, []string{"markdown"}, normalizeFormats(nil))
	assert.Equal(t, []string{"markdown", "json"}, normalizeFormats([]string{" JSON ", "md", ""}))
}
