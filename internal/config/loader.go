package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"stt": {"soniox"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
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
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	for _, fb := range cfg.Providers.STT.Fallbacks {
		validateProviderName("stt", fb.Name)
	}
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.LLM.Fallbacks {
		validateProviderName("llm", fb.Name)
	}

	// Provider availability warnings
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; transcription requests will fail")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; scoring and summary requests will fail")
	}

	// Transcription
	if cfg.Transcription.MergeThreshold < 0 {
		errs = append(errs, fmt.Errorf("transcription.merge_threshold %.2f must not be negative", cfg.Transcription.MergeThreshold))
	}

	// Scoring
	if cfg.Scoring.RubricPath == "" && cfg.Providers.LLM.Name != "" {
		errs = append(errs, errors.New("scoring.rubric_path is required when an LLM provider is configured"))
	}
	seenFatal := make(map[string]int, len(cfg.Scoring.FatalCriteria))
	for i, id := range cfg.Scoring.FatalCriteria {
		if id == "" {
			errs = append(errs, fmt.Errorf("scoring.fatal_criteria[%d] must not be empty", i))
			continue
		}
		if prev, ok := seenFatal[id]; ok {
			errs = append(errs, fmt.Errorf("scoring.fatal_criteria[%d] %q is a duplicate of scoring.fatal_criteria[%d]", i, id, prev))
		}
		seenFatal[id] = i
	}

	// Knowledge
	for project, path := range cfg.Knowledge.FAQPaths {
		if project == "" || path == "" {
			errs = append(errs, errors.New("knowledge.faq_paths entries require both a project name and a path"))
			break
		}
	}

	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; runs will be kept in memory only")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
