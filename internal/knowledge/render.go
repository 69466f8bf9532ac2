package knowledge

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const banner = "================================================================================"

// FactSheet renders the ready-reckoner facts of every project into the
// plain-text block injected into the evaluation prompt. Each project gets a
// banner section with its KEY: value facts followed by shared validation
// instructions for the oracle.
func FactSheet(b *Base) string {
	if b == nil || len(b.Files) == 0 {
		return "Ready Reckoner data not available."
	}

	var sections []string
	for _, project := range b.Projects {
		key := strings.ToLower(project) + "_reckoner_excel"
		rows := reckonerRows(b.Files[key])
		if len(rows) == 0 {
			slog.Warn("no usable reckoner sheet for project", "project", project)
			continue
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%s\nREADY RECKONER - %s\nOfficial Project Facts for Validation\n%s\n\n",
			banner, strings.ToUpper(project), banner)
		for _, row := range rows {
			for _, kv := range row {
				fmt.Fprintf(&sb, "%s: %s\n\n", strings.ToUpper(kv.key), kv.value)
			}
		}
		sections = append(sections, sb.String())
	}

	if len(sections) == 0 {
		return "Ready Reckoner data not available."
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(sections, "\n"))
	sb.WriteString("\n" + banner + "\n")
	sb.WriteString("GENERAL VALIDATION INSTRUCTIONS\n")
	sb.WriteString(banner + "\n\n")
	sb.WriteString("1. First, identify which project the agent is discussing\n")
	sb.WriteString("2. Extract EVERY factual statement made by the agent (with timestamp)\n")
	sb.WriteString("3. Compare EACH fact against the Ready Reckoner data for that project\n")
	sb.WriteString("4. CRITICAL ERRORS result in 0 score for factual accuracy:\n")
	sb.WriteString("   - Wrong project name\n")
	sb.WriteString("   - Pricing or plot sizes that contradict the project facts\n")
	sb.WriteString("   - Wrong approvals or major location errors\n")
	sb.WriteString("5. Even ONE critical error = 0 score for factual accuracy\n")
	sb.WriteString("6. Minor variations acceptable: rounding numbers, slight wording differences\n")
	sb.WriteString("7. NOT acceptable: contradicting core facts, wrong numbers, wrong project\n")
	return sb.String()
}

// keyValue preserves the source column order of a reckoner row.
type keyValue struct {
	key   string
	value string
}

// reckonerRows extracts fact rows from an extracted-spreadsheet entry.
// Two sheet data shapes occur in the wild: a list of records
// ([]map[string]any) and a header row followed by value rows ([][]any).
// Only entries with status "success" are considered.
func reckonerRows(entry any) [][]keyValue {
	obj, ok := entry.(map[string]any)
	if !ok {
		return nil
	}
	if status, _ := obj["status"].(string); status != "success" {
		return nil
	}
	sheets, ok := obj["sheets"].(map[string]any)
	if !ok {
		return nil
	}

	// Sheets are keyed by name; take the first one that yields rows,
	// scanning names in sorted order for determinism.
	names := make([]string, 0, len(sheets))
	for name := range sheets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var data []any
		switch s := sheets[name].(type) {
		case map[string]any:
			data, _ = s["data"].([]any)
		case []any:
			// A sheet may also be the bare data list.
			data = s
		}
		if rows := parseSheet(data); len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// parseSheet turns raw sheet data into ordered key/value rows.
func parseSheet(data []any) [][]keyValue {
	if len(data) == 0 {
		return nil
	}

	// Record shape: every row is its own object.
	if _, ok := data[0].(map[string]any); ok {
		var rows [][]keyValue
		for _, raw := range data {
			rec, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			keys := make([]string, 0, len(rec))
			for k := range rec {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			var row []keyValue
			for _, k := range keys {
				if v := cellString(rec[k]); v != "" {
					row = append(row, keyValue{key: cleanKey(k), value: v})
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
		}
		return rows
	}

	// Header shape: first row names the columns, later rows carry values.
	header, ok := data[0].([]any)
	if !ok || len(data) < 2 {
		return nil
	}
	var rows [][]keyValue
	for _, raw := range data[1:] {
		cells, ok := raw.([]any)
		if !ok {
			continue
		}
		var row []keyValue
		for i, h := range header {
			if i >= len(cells) {
				break
			}
			k := cellString(h)
			v := cellString(cells[i])
			if k != "" && v != "" {
				row = append(row, keyValue{key: cleanKey(k), value: v})
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// cellString renders a sheet cell as trimmed text. Numbers keep their
// shortest representation.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", t), "0"), ".")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// cleanKey collapses embedded newlines that spreadsheets leave in headers.
func cleanKey(k string) string {
	return strings.Join(strings.Fields(k), " ")
}

// FAQSheet renders all project FAQ documents into the prompt's knowledge
// block, with highlights, numbered Q/A pairs, and validation guidelines.
func FAQSheet(set FAQSet) string {
	if len(set) == 0 {
		return "FAQ data not available."
	}

	projects := make([]string, 0, len(set))
	for name := range set {
		projects = append(projects, name)
	}
	sort.Strings(projects)

	var sb strings.Builder
	for _, project := range projects {
		doc := set[project]
		fmt.Fprintf(&sb, "%s\n%s FAQ - KNOWLEDGE BASE\nFrequently Asked Questions for Project Knowledge Validation\n%s\n\n",
			banner, strings.ToUpper(project), banner)

		if len(doc.KeyHighlights) > 0 {
			sb.WriteString("KEY HIGHLIGHTS:\n")
			for i, h := range doc.KeyHighlights {
				fmt.Fprintf(&sb, "  %d. %s\n", i+1, h)
			}
			sb.WriteString("\n")
		}

		if len(doc.FAQs) > 0 {
			sb.WriteString("FREQUENTLY ASKED QUESTIONS:\n\n")
			n := 0
			for _, qa := range doc.FAQs {
				q := strings.TrimSpace(qa.Question)
				a := strings.TrimSpace(qa.Answer)
				if q == "" || a == "" {
					continue
				}
				n++
				fmt.Fprintf(&sb, "Q%d. %s\n    A: %s\n\n", n, q, a)
			}
		}
	}

	sb.WriteString(banner + "\n")
	sb.WriteString("FAQ VALIDATION GUIDELINES\n")
	sb.WriteString(banner + "\n\n")
	sb.WriteString("1. When the agent provides information that matches FAQ content, this is CORRECT\n")
	sb.WriteString("2. When the agent provides information that contradicts FAQ content, this is INCORRECT\n")
	sb.WriteString("3. FAQ data supplements the Ready Reckoner; use BOTH for validation\n")
	sb.WriteString("4. If the agent mentions information from the FAQ correctly, award points\n")
	sb.WriteString("5. If the agent provides incomplete or incorrect information covered in the FAQ, reduce the score\n")
	return sb.String()
}
