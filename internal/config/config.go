// Package config provides the configuration schema, loader, provider
// registry, and file watcher for the callaudit server.
package config

// LogLevel controls log verbosity for the callaudit server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for callaudit.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Knowledge     KnowledgeConfig     `yaml:"knowledge"`
	Storage       StorageConfig       `yaml:"storage"`
}

// ServerConfig holds network and logging settings for the callaudit server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each entry selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT ProviderChain `yaml:"stt"`
	LLM ProviderChain `yaml:"llm"`
}

// ProviderChain is a primary provider plus ordered fallbacks. Fallbacks are
// tried in order when the primary fails or its circuit is open.
type ProviderChain struct {
	ProviderEntry `yaml:",inline"`

	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "soniox",
	// "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o",
	// "stt-async-preview").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// TranscriptionConfig controls the transcription pipeline.
type TranscriptionConfig struct {
	// LanguageHints lists BCP-47 language tags expected in the recordings
	// (e.g., ["en", "ta"] for Tamil-English code-switched calls).
	LanguageHints []string `yaml:"language_hints"`

	// DisableDiarization turns speaker diarization off. Scoring quality
	// degrades without speaker turns; leave this off in production.
	DisableDiarization bool `yaml:"disable_diarization"`

	// MergeThreshold is the same-speaker gap in seconds below which
	// consecutive segments are merged. Zero keeps the engine default.
	MergeThreshold float64 `yaml:"merge_threshold"`

	// RawSpeakerLabels keeps provider speaker ids instead of renumbering
	// them by first appearance.
	RawSpeakerLabels bool `yaml:"raw_speaker_labels"`

	// ContextHints are key/value recognition hints passed to the STT
	// provider (e.g., domain: "Real estate").
	ContextHints map[string]string `yaml:"context_hints"`

	// ContextText is a free-form description of the expected conversation.
	ContextText string `yaml:"context_text"`
}

// ScoringConfig controls rubric evaluation.
type ScoringConfig struct {
	// RubricPath is the YAML rubric file evaluated against each call.
	RubricPath string `yaml:"rubric_path"`

	// FatalCriteria lists criterion ids whose zero score voids the whole
	// call. Empty applies the built-in gate set; list a single unknown id
	// (e.g. "none") to disable the gate entirely.
	FatalCriteria []string `yaml:"fatal_criteria"`

	// BrandVariants lists spellings of the brand name used for the phonetic
	// cross-check of brand-related criteria. Empty disables the check.
	BrandVariants []string `yaml:"brand_variants"`
}

// KnowledgeConfig points at the advisory knowledge sources rendered into
// the scoring prompt. All paths are optional; missing sources degrade to
// "not available" placeholders.
type KnowledgeConfig struct {
	// CombinedPath is the combined knowledge JSON with per-project
	// extraction results.
	CombinedPath string `yaml:"combined_path"`

	// FAQPaths maps project names to their FAQ JSON files.
	FAQPaths map[string]string `yaml:"faq_paths"`

	// ScriptPath overrides the embedded reference calling script.
	ScriptPath string `yaml:"script_path"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// PostgresDSN is the PostgreSQL connection string for run persistence.
	// Empty falls back to the in-memory store (runs are lost on restart).
	PostgresDSN string `yaml:"postgres_dsn"`
}
