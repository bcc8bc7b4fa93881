// Package config loads mdbatch settings from flags, environment, an
// optional YAML file and built-in defaults, in that order of precedence.
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gaurav-prasanna/mdbatch/core/notify"
	"github.com/gaurav-prasanna/mdbatch/core/pipeline"
	"github.com/gaurav-prasanna/mdbatch/core/render"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Keys understood in mdbatch.yaml and as MDBATCH_* variables.
const (
	KeyOutputDir         = "output_dir"
	KeyImagesDir         = "images_dir"
	KeyConcurrency       = "concurrency"
	KeyCanonicalHost     = "canonical_host"
	KeyFormats           = "formats"
	KeyHTTPTimeout       = "http_timeout"
	KeyMaxRetries        = "max_retries"
	KeyUserAgent         = "user_agent"
	KeyNotify            = "notify"
	KeyPerTaskImageNames = "per_task_image_names"
	KeySanitize          = "sanitize"
	KeyLogLevel          = "log_level"
)

const (
	defaultImagesDir     = "images"
	defaultCanonicalHost = "https://www.cisco.com"
	defaultHTTPTimeout   = 30 * time.Second
	defaultMaxRetries    = 2
	defaultLogLevel      = "info"
)

// Config describes one batch run.
type Config struct {
	OutputDir         string        `mapstructure:"output_dir"`
	ImagesDir         string        `mapstructure:"images_dir"`
	Concurrency       int           `mapstructure:"concurrency"`
	CanonicalHost     string        `mapstructure:"canonical_host"`
	Formats           []string      `mapstructure:"formats"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	UserAgent         string        `mapstructure:"user_agent"`
	Notify            string        `mapstructure:"notify"`
	PerTaskImageNames bool          `mapstructure:"per_task_image_names"`
	Sanitize          bool          `mapstructure:"sanitize"`
	LogLevel          string        `mapstructure:"log_level"`
}

// Default returns the built-in configuration. An empty OutputDir means the
// working directory.
func Default() Config {
	return Config{
		ImagesDir:     defaultImagesDir,
		Concurrency:   pipeline.DefaultConcurrency,
		CanonicalHost: defaultCanonicalHost,
		Formats:       []string{render.FormatMarkdown},
		HTTPTimeout:   defaultHTTPTimeout,
		MaxRetries:    defaultMaxRetries,
		Notify:        notify.KindConsole,
		Sanitize:      true,
		LogLevel:      defaultLogLevel,
	}
}

// SetDefaults registers Default() as the lowest-precedence values of v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyOutputDir, d.OutputDir)
	v.SetDefault(KeyImagesDir, d.ImagesDir)
	v.SetDefault(KeyConcurrency, d.Concurrency)
	v.SetDefault(KeyCanonicalHost, d.CanonicalHost)
	v.SetDefault(KeyFormats, d.Formats)
	v.SetDefault(KeyHTTPTimeout, d.HTTPTimeout)
	v.SetDefault(KeyMaxRetries, d.MaxRetries)
	v.SetDefault(KeyUserAgent, d.UserAgent)
	v.SetDefault(KeyNotify, d.Notify)
	v.SetDefault(KeyPerTaskImageNames, d.PerTaskImageNames)
	v.SetDefault(KeySanitize, d.Sanitize)
	v.SetDefault(KeyLogLevel, d.LogLevel)
}

// Load resolves the configuration held by v, normalizes it and validates it.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("decode config: %w", err)
	}

	cfg.Formats = normalizeFormats(cfg.Formats)
	cfg.Notify = strings.ToLower(strings.TrimSpace(cfg.Notify))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.CanonicalHost = strings.TrimSpace(cfg.CanonicalHost)
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = defaultImagesDir
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency: %d (must be >= 1)", c.Concurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries: %d (must be >= 0)", c.MaxRetries)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid http_timeout: %s (must be > 0)", c.HTTPTimeout)
	}
	for _, f := range c.Formats {
		if !slices.Contains(render.KnownFormats, f) {
			return fmt.Errorf("invalid format %q (want one of %s)", f, strings.Join(render.KnownFormats, ", "))
		}
	}
	if !slices.Contains(notify.KnownKinds, c.Notify) {
		return fmt.Errorf("invalid notify %q (want one of %s)", c.Notify, strings.Join(notify.KnownKinds, ", "))
	}
	host, err := url.Parse(c.CanonicalHost)
	if err != nil || (host.Scheme != "http" && host.Scheme != "https") || host.Host == "" {
		return fmt.Errorf("invalid canonical_host %q (want an http(s) URL)", c.CanonicalHost)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// normalizeFormats lower-cases and de-duplicates formats. Markdown is always
// produced, so it is added when missing.
func normalizeFormats(in []string) []string {
	seen := map[string]struct{}{render.FormatMarkdown: {}}
	out := []string{render.FormatMarkdown}
	for _, f := range in {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "md" {
			f = render.FormatMarkdown
		}
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
