package segment_test

import (
	"strings"
	"testing"

	"github.com/callscope/callaudit/internal/segment"
)

func TestFormatTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{65, "1:05"},
		{600, "10:00"},
		{3725, "62:05"},
		{-3, "0:00"},
		{59.9, "0:59"},
	}
	for _, tc := range cases {
		if got := segment.FormatTime(tc.in); got != tc.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatForPrompt_SilenceMarkers(t *testing.T) {
	t.Parallel()

	segs := []segment.Segment{
		seg("Speaker 1", "hello there", 0, 2),
		seg("Speaker 2", "hi", 6, 7), // 4s gap, marker expected
		seg("Speaker 1", "ok", 7.5, 8),
	}

	out := segment.FormatForPrompt(segs)

	if !strings.Contains(out, "[SILENCE: ~4.0s gap]") {
		t.Errorf("missing silence marker in:\n%s", out)
	}
	if !strings.Contains(out, "Speaker 1 [0:00 - 0:02]: hello there") {
		t.Errorf("missing formatted line in:\n%s", out)
	}
	if strings.Count(out, "[SILENCE") != 1 {
		t.Errorf("expected exactly one silence marker in:\n%s", out)
	}
}

func TestFormatForPrompt_LineCap(t *testing.T) {
	t.Parallel()

	segs := make([]segment.Segment, 400)
	for i := range segs {
		start := float64(i)
		segs[i] = seg("Speaker 1", "word", start, start+0.5)
	}

	out := segment.FormatForPrompt(segs)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) > 300 {
		t.Errorf("got %d lines, want at most 300", len(lines))
	}
}
