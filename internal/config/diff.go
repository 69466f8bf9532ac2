package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// storage changes require a restart and are intentionally absent.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ScoringChanged is true when the rubric path, fatal criteria list, or
	// brand variants changed. The scoring stack is rebuilt on next request.
	ScoringChanged bool

	// KnowledgeChanged is true when any knowledge source path changed. The
	// fact sheet, FAQ sheet, and script are re-rendered on next request.
	KnowledgeChanged bool

	// TranscriptionChanged is true when the transcription pipeline settings
	// changed (language hints, diarization, segment aggregation).
	TranscriptionChanged bool
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.ScoringChanged || d.KnowledgeChanged || d.TranscriptionChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !reflect.DeepEqual(old.Scoring, new.Scoring) {
		d.ScoringChanged = true
	}
	if !reflect.DeepEqual(old.Knowledge, new.Knowledge) {
		d.KnowledgeChanged = true
	}
	if !reflect.DeepEqual(old.Transcription, new.Transcription) {
		d.TranscriptionChanged = true
	}

	return d
}
