package config_test

import (
	"testing"

	"github.com/callscope/callaudit/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.LogLevel = config.LogInfo
	cfg.Scoring.RubricPath = "rubric.yaml"
	cfg.Scoring.FatalCriteria = []string{"brand_intro"}
	cfg.Knowledge.CombinedPath = "knowledge.json"
	cfg.Transcription.LanguageHints = []string{"en", "ta"}
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	d := config.Diff(baseConfig(), baseConfig())
	if d.Any() {
		t.Errorf("diff = %+v, want no changes", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()

	newCfg := baseConfig()
	newCfg.Server.LogLevel = config.LogDebug

	d := config.Diff(baseConfig(), newCfg)
	if !d.LogLevelChanged {
		t.Error("LogLevelChanged = false")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q", d.NewLogLevel)
	}
	if d.ScoringChanged || d.KnowledgeChanged || d.TranscriptionChanged {
		t.Errorf("unexpected section changes: %+v", d)
	}
}

func TestDiff_Scoring(t *testing.T) {
	t.Parallel()

	newCfg := baseConfig()
	newCfg.Scoring.FatalCriteria = []string{"brand_intro", "call_opening"}

	d := config.Diff(baseConfig(), newCfg)
	if !d.ScoringChanged {
		t.Error("ScoringChanged = false")
	}
	if !d.Any() {
		t.Error("Any() = false")
	}
}

func TestDiff_Knowledge(t *testing.T) {
	t.Parallel()

	newCfg := baseConfig()
	newCfg.Knowledge.FAQPaths = map[string]string{"lakeview": "faq.json"}

	d := config.Diff(baseConfig(), newCfg)
	if !d.KnowledgeChanged {
		t.Error("KnowledgeChanged = false")
	}
}

func TestDiff_Transcription(t *testing.T) {
	t.Parallel()

	newCfg := baseConfig()
	newCfg.Transcription.MergeThreshold = 1.5

	d := config.Diff(baseConfig(), newCfg)
	if !d.TranscriptionChanged {
		t.Error("TranscriptionChanged = false")
	}
}
