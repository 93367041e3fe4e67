package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the STT provider names the runtime can build.
// [Validate] rejects anything else so a typo surfaces at load time instead of
// at session start.
var ValidProviderNames = []string{"deepgram", "whisper", "mock"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Environment variable references of the form ${VAR} in the file
// are expanded before parsing, so secrets like API keys can stay out of the
// file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}

	cfg, err := LoadFromReader(strings.NewReader(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for omitted
// fields, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// STT provider
	errs = append(errs, validateProviderEntry("stt", cfg.STT)...)
	if cfg.STT.Fallback != nil {
		errs = append(errs, validateProviderEntry("stt.fallback", *cfg.STT.Fallback)...)
		if cfg.STT.Fallback.Fallback != nil {
			errs = append(errs, errors.New("stt.fallback must not itself declare a fallback"))
		}
	}

	// Tracker tuning. Zero values mean "use the default"; negatives are
	// always mistakes, and a distance ratio of 1 or more would make every
	// token pair equal.
	tr := cfg.Tracker
	for _, p := range []struct {
		name  string
		value int
	}{
		{"tracker.lookahead", tr.Lookahead},
		{"tracker.recent_window", tr.RecentWindow},
		{"tracker.prefix_min_match", tr.PrefixMinMatch},
		{"tracker.tail_window", tr.TailWindow},
		{"tracker.in_line_window", tr.InLineWindow},
		{"tracker.min_match_count", tr.MinMatchCount},
	} {
		if p.value < 0 {
			errs = append(errs, fmt.Errorf("%s %d must not be negative", p.name, p.value))
		}
	}
	if tr.MaxDistanceRatio < 0 || tr.MaxDistanceRatio >= 1 {
		errs = append(errs, fmt.Errorf("tracker.max_distance_ratio %.2f is out of range [0, 1)", tr.MaxDistanceRatio))
	}

	// Storage
	if cfg.Storage.Kind != "" && !cfg.Storage.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("storage.kind %q is invalid; valid values: memory, postgres", cfg.Storage.Kind))
	}
	if cfg.Storage.Kind == StorePostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required when storage.kind is postgres"))
	}

	return errors.Join(errs...)
}

// validateProviderEntry checks one STT provider entry. The prefix names the
// config section ("stt" or "stt.fallback") in error messages.
func validateProviderEntry(prefix string, entry ProviderEntry) []error {
	var errs []error
	if entry.Name != "" && !slices.Contains(ValidProviderNames, entry.Name) {
		errs = append(errs, fmt.Errorf("%s.name %q is unknown; valid values: %s",
			prefix, entry.Name, strings.Join(ValidProviderNames, ", ")))
	}
	switch entry.Name {
	case "deepgram":
		if entry.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required for the deepgram provider", prefix))
		}
	case "whisper":
		if entry.ModelPath == "" {
			errs = append(errs, fmt.Errorf("%s.model_path is required for the whisper provider", prefix))
		}
	}
	if entry.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("%s.sample_rate %d must not be negative", prefix, entry.SampleRate))
	}
	return errs
}
