// Package knowledge loads the project knowledge base used to ground the
// scoring oracle: ready-reckoner fact sheets extracted from project
// spreadsheets, per-project FAQ documents, and the ideal-call script
// reference. All of it is rendered to plain text and injected into the
// evaluation prompt.
//
// Source files are advisory. A missing or malformed file is logged and
// skipped so a scoring run can proceed with whatever knowledge is present;
// the renderers emit explicit "not available" placeholders so the prompt
// never silently loses a section.
package knowledge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Base is the merged ready-reckoner knowledge for all configured projects.
// File entries are keyed "<project>_<name>" where <project> is the
// lowercased project name, so multiple projects can share one flat map
// without key collisions.
type Base struct {
	ExtractionDate string

	// Projects lists the project names in render order.
	Projects []string

	// Files maps prefixed file keys to their extracted payloads.
	Files map[string]any
}

// combinedFile is the on-disk shape of the combined knowledge export:
// one "projects" object keyed by project name, each with its own files map.
type combinedFile struct {
	ExtractionDate string `json:"extraction_date"`
	Projects       map[string]struct {
		Files map[string]any `json:"files"`
	} `json:"projects"`

	// Files is the legacy flat shape, already prefixed.
	Files map[string]any `json:"files"`
}

// LoadBase reads the combined project knowledge JSON at path and merges all
// projects into one prefixed Base. The legacy flat shape (top-level "files")
// is accepted as-is.
func LoadBase(path string) (*Base, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project knowledge %q: %w", path, err)
	}

	var cf combinedFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parse project knowledge %q: %w", path, err)
	}

	b := &Base{
		ExtractionDate: cf.ExtractionDate,
		Files:          map[string]any{},
	}

	if len(cf.Projects) > 0 {
		// Sort for deterministic render order.
		names := make([]string, 0, len(cf.Projects))
		for name := range cf.Projects {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			prefix := strings.ToLower(name) + "_"
			for key, value := range cf.Projects[name].Files {
				b.Files[prefix+key] = value
			}
			b.Projects = append(b.Projects, name)
		}
		slog.Info("loaded project knowledge", "path", path, "projects", b.Projects)
		return b, nil
	}

	if len(cf.Files) > 0 {
		b.Files = cf.Files
		slog.Info("loaded project knowledge (flat format)", "path", path, "files", len(cf.Files))
		return b, nil
	}

	return nil, fmt.Errorf("project knowledge %q contains no projects or files", path)
}

// QA is a single question/answer pair from a project FAQ document.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQ is one project's FAQ document.
type FAQ struct {
	KeyHighlights []string `json:"key_highlights"`
	FAQs          []QA     `json:"faqs"`
}

// FAQSet maps project name to its FAQ document.
type FAQSet map[string]FAQ

// LoadFAQ reads FAQ JSON documents keyed by project name. Files that are
// missing or unparsable are logged and skipped; the remaining projects are
// still returned.
func LoadFAQ(paths map[string]string) FAQSet {
	set := FAQSet{}
	for project, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("FAQ file unavailable", "project", project, "path", path, "error", err)
			continue
		}
		var doc FAQ
		if err := json.Unmarshal(raw, &doc); err != nil {
			slog.Warn("FAQ file unparsable", "project", project, "path", path, "error", err)
			continue
		}
		set[project] = doc
	}
	slog.Info("loaded FAQ data", "projects", len(set))
	return set
}
