package segment_test

import (
	"testing"

	"github.com/callscope/callaudit/internal/segment"
)

func TestNormalizeSpeakers_FirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	in := []segment.Segment{
		seg("S2", "a", 0, 1),
		seg("S2", "b", 2, 3),
		seg("S5", "c", 4, 5),
		seg("S2", "d", 6, 7),
	}

	got := segment.NormalizeSpeakers(in)

	want := []string{"Speaker 1", "Speaker 1", "Speaker 2", "Speaker 1"}
	for i, s := range got {
		if s.Speaker != want[i] {
			t.Errorf("segment %d: speaker = %q, want %q", i, s.Speaker, want[i])
		}
	}

	// Original slice stays untouched.
	if in[0].Speaker != "S2" {
		t.Errorf("NormalizeSpeakers mutated its input: %q", in[0].Speaker)
	}
}

func TestNormalizeSpeakers_Bijection(t *testing.T) {
	t.Parallel()

	in := []segment.Segment{
		seg("agent-7", "a", 0, 1),
		seg("cust", "b", 1, 2),
		seg("agent-7", "c", 2, 3),
		seg("supervisor", "d", 3, 4),
	}

	got := segment.NormalizeSpeakers(in)

	rawToLabel := map[string]string{}
	labelToRaw := map[string]string{}
	for i, s := range got {
		raw := in[i].Speaker
		if prev, ok := rawToLabel[raw]; ok && prev != s.Speaker {
			t.Errorf("raw speaker %q mapped to both %q and %q", raw, prev, s.Speaker)
		}
		rawToLabel[raw] = s.Speaker
		if prev, ok := labelToRaw[s.Speaker]; ok && prev != raw {
			t.Errorf("label %q assigned to both %q and %q", s.Speaker, prev, raw)
		}
		labelToRaw[s.Speaker] = raw
	}
	if len(rawToLabel) != 3 || len(labelToRaw) != 3 {
		t.Errorf("expected 3 distinct speakers, got %d raw / %d labels", len(rawToLabel), len(labelToRaw))
	}
}
