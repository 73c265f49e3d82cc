// Package config loads process configuration from an optional YAML file, a
// .env file and PLATE_* environment variables, in that order of precedence
// (later sources win).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/plate-redact/internal/detection"
	"github.com/ironsheep/plate-redact/internal/ocr"
	"github.com/ironsheep/plate-redact/internal/pipeline"
)

// Duration is a time.Duration that also accepts a bare number of seconds.
type Duration time.Duration

// UnmarshalYAML accepts "30s", "1m30s" or 30.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Hosted configures the hosted detection service.
type Hosted struct {
	APIURL  string `yaml:"api_url"`
	APIKey  string `yaml:"api_key"`
	Project string `yaml:"project"`
	Version string `yaml:"version"`

	// Confidence and Overlap accept a 0-1 fraction or a 0-100 percentage.
	// Load normalizes both to fractions.
	Confidence float64 `yaml:"confidence"`
	Overlap    float64 `yaml:"overlap"`

	Timeout Duration `yaml:"timeout"`
}

// Config is the full process configuration.
type Config struct {
	// Pipeline is "legacy" or "hosted".
	Pipeline string `yaml:"pipeline"`

	DetectorEnabled bool `yaml:"detector_enabled"`

	// ExpandRatio overrides the renderer expansion when set.
	ExpandRatio *float64 `yaml:"expand_ratio"`

	HostedFailsafe bool `yaml:"hosted_failsafe"`

	Hosted     Hosted                 `yaml:"hosted"`
	LocalModel detection.ModelOptions `yaml:"local_model"`
	OCR        ocr.Options            `yaml:"ocr"`

	LogLevel    string `yaml:"log_level"`
	LogDev      bool   `yaml:"log_dev"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Pipeline:        string(pipeline.ModeLegacy),
		DetectorEnabled: true,
		Hosted: Hosted{
			APIURL:     detection.DefaultHostedURL,
			Confidence: 0.4,
			Overlap:    0.3,
			Timeout:    Duration(30 * time.Second),
		},
		OCR:      ocr.Options{Language: ocr.DefaultLanguage, Whitelist: ocr.PlateWhitelist},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path (skipped when path is empty), then .env
// from the working directory if present, then the environment. The result is
// normalized and validated.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv, ".env")
}

func load(path string, lookup func(string) (string, bool), envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Best effort: a missing .env is not an error. godotenv never overrides
	// variables that are already set.
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := get(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str("PLATE_PIPELINE", &c.Pipeline)
	boolean("PLATE_DETECTOR_ENABLED", &c.DetectorEnabled)
	if v, ok := get("PLATE_EXPAND_RATIO"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PLATE_EXPAND_RATIO: %w", err))
		} else {
			c.ExpandRatio = &f
		}
	}
	boolean("PLATE_HOSTED_FAILSAFE", &c.HostedFailsafe)

	str("PLATE_API_URL", &c.Hosted.APIURL)
	str("PLATE_API_KEY", &c.Hosted.APIKey)
	str("PLATE_PROJECT", &c.Hosted.Project)
	str("PLATE_VERSION", &c.Hosted.Version)
	float("PLATE_CONFIDENCE", &c.Hosted.Confidence)
	float("PLATE_OVERLAP", &c.Hosted.Overlap)
	if v, ok := get("PLATE_TIMEOUT"); ok {
		d, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PLATE_TIMEOUT: %w", err))
		} else {
			c.Hosted.Timeout = Duration(d)
		}
	}

	str("PLATE_MODEL_PATH", &c.LocalModel.Path)
	float("PLATE_MODEL_CONFIDENCE", &c.LocalModel.Confidence)
	if v, ok := get("PLATE_MODEL_INPUT_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PLATE_MODEL_INPUT_SIZE: %w", err))
		} else {
			c.LocalModel.InputSize = n
		}
	}

	str("PLATE_OCR_LANG", &c.OCR.Language)
	str("PLATE_TESSDATA_PREFIX", &c.OCR.TessdataPrefix)
	str("PLATE_LOG_LEVEL", &c.LogLevel)
	boolean("PLATE_LOG_DEV", &c.LogDev)
	str("PLATE_METRICS_ADDR", &c.MetricsAddr)

	return errors.Join(errs...)
}

func (c *Config) normalize() {
	c.Pipeline = strings.ToLower(strings.TrimSpace(c.Pipeline))
	c.Hosted.Confidence = fraction(c.Hosted.Confidence)
	c.Hosted.Overlap = fraction(c.Hosted.Overlap)
	c.LocalModel.Confidence = fraction(c.LocalModel.Confidence)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate reports every out-of-range value.
func (c *Config) Validate() error {
	var errs []error

	mode := pipeline.Mode(c.Pipeline)
	if mode != pipeline.ModeLegacy && mode != pipeline.ModeHosted {
		errs = append(errs, fmt.Errorf("pipeline must be %q or %q, got %q", pipeline.ModeLegacy, pipeline.ModeHosted, c.Pipeline))
	}
	if c.ExpandRatio != nil && *c.ExpandRatio < 0 {
		errs = append(errs, fmt.Errorf("expand_ratio must not be negative, got %g", *c.ExpandRatio))
	}
	for name, v := range map[string]float64{
		"hosted.confidence":      c.Hosted.Confidence,
		"hosted.overlap":         c.Hosted.Overlap,
		"local_model.confidence": c.LocalModel.Confidence,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be a fraction in [0,1] or a percentage in [0,100], got %g", name, v))
		}
	}
	if c.Hosted.Timeout < 0 {
		errs = append(errs, errors.New("hosted.timeout must not be negative"))
	}
	if mode == pipeline.ModeHosted && c.DetectorEnabled && !c.HostedConfig().Configured() {
		errs = append(errs, errors.New("hosted pipeline needs hosted.api_key, hosted.project and hosted.version"))
	}
	if c.LogLevel != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
			errs = append(errs, fmt.Errorf("log_level: %w", err))
		}
	}
	return errors.Join(errs...)
}

// HostedConfig converts the hosted section for the detector client.
func (c *Config) HostedConfig() detection.HostedConfig {
	return detection.HostedConfig{
		APIURL:     c.Hosted.APIURL,
		APIKey:     c.Hosted.APIKey,
		Project:    c.Hosted.Project,
		Version:    c.Hosted.Version,
		Confidence: c.Hosted.Confidence,
		Overlap:    c.Hosted.Overlap,
		Timeout:    time.Duration(c.Hosted.Timeout),
	}
}

// PipelineConfig converts the policy settings for the orchestrator.
func (c *Config) PipelineConfig() pipeline.Config {
	pc := pipeline.Config{
		Mode:           pipeline.Mode(c.Pipeline),
		Enabled:        c.DetectorEnabled,
		ExpandRatio:    -1,
		HostedFailsafe: c.HostedFailsafe,
	}
	if c.ExpandRatio != nil {
		pc.ExpandRatio = *c.ExpandRatio
	}
	return pc
}

// Redacted returns a copy that is safe to log.
func (c *Config) Redacted() Config {
	out := *c
	if out.Hosted.APIKey != "" {
		out.Hosted.APIKey = "***"
	}
	if c.ExpandRatio != nil {
		v := *c.ExpandRatio
		out.ExpandRatio = &v
	}
	return out
}

// fraction maps a percentage in (1,100] to a fraction and leaves fractions
// unchanged.
func fraction(v float64) float64 {
	if v > 1 && v <= 100 {
		return v / 100
	}
	return v
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: want seconds or a value like 30s", s)
	}
	return d, nil
}
