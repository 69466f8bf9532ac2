package segment

import (
	"fmt"
	"sort"
	"strings"
)

// silenceGap is the minimum inter-segment gap in seconds that is called out
// as a silence marker in prompt-formatted transcripts.
const silenceGap = 2.5

// maxPromptLines caps the number of lines emitted by [FormatForPrompt] so an
// unusually long call cannot blow up the oracle prompt.
const maxPromptLines = 300

// FormatTime renders seconds as M:SS with minutes unpadded and seconds
// zero-padded to two digits. Negative inputs clamp to zero.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// FormatForPrompt renders segments as timestamped speaker lines for
// inclusion in an oracle prompt, with explicit silence markers for gaps of
// [silenceGap] seconds or more. Segments are sorted by start time; the
// output is capped at [maxPromptLines] lines.
func FormatForPrompt(segs []Segment) string {
	if len(segs) == 0 {
		return "Speaker segments with timestamps not available."
	}

	sorted := make([]Segment, len(segs))
	copy(sorted, segs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	lines := make([]string, 0, len(sorted))
	lastEnd := -1.0

	for _, s := range sorted {
		if lastEnd >= 0 {
			gap := s.StartTime - lastEnd
			if gap >= silenceGap {
				lines = append(lines, fmt.Sprintf("[SILENCE: ~%.1fs gap]", gap))
			}
		}
		lines = append(lines, fmt.Sprintf("%s [%s - %s]: %s",
			s.Speaker, FormatTime(s.StartTime), FormatTime(s.EndTime), strings.TrimSpace(s.Text)))
		lastEnd = s.EndTime
	}

	if len(lines) > maxPromptLines {
		lines = lines[:maxPromptLines]
	}
	return strings.Join(lines, "\n")
}
