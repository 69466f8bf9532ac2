package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

// defaultScript is the built-in ideal-call script reference, used when no
// project-specific script file is configured.
//
//go:embed default_script.md
var defaultScript string

// LoadScript returns the ideal-call script text for the prompt. When path is
// empty the embedded default script is returned; otherwise the file at path
// is read and must be non-empty.
func LoadScript(path string) (string, error) {
	if path == "" {
		return defaultScript, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read calling script %q: %w", path, err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("calling script %q is empty", path)
	}
	return text, nil
}
