package segment_test

import (
	"testing"

	"github.com/callscope/callaudit/internal/segment"
)

func f(v float64) *float64 { return &v }

func tok(speaker, text string, start, end float64) segment.Token {
	return segment.Token{
		Text:      text,
		Speaker:   speaker,
		StartTime: f(start),
		EndTime:   f(end),
	}
}

func TestAggregate_MergesWithinThreshold(t *testing.T) {
	t.Parallel()

	tokens := []segment.Token{
		tok("A", "Hi ", 0, 1),
		tok("A", "there", 1.2, 1.5),
		tok("B", "Hello", 2, 2.5),
	}

	segs := segment.Aggregate(tokens)
	if len(segs) != 2 {
		t.Fatalf("Aggregate: got %d segments, want 2: %+v", len(segs), segs)
	}

	first := segs[0]
	if first.Speaker != "A" || first.StartTime != 0 || first.EndTime != 1.5 {
		t.Errorf("first segment = %+v, want speaker A [0, 1.5]", first)
	}
	if first.Text != "Hi there" {
		t.Errorf("first segment text = %q, want %q", first.Text, "Hi there")
	}
	if first.Duration != 1.5 {
		t.Errorf("first segment duration = %v, want 1.5", first.Duration)
	}

	second := segs[1]
	if second.Speaker != "B" || second.StartTime != 2 || second.EndTime != 2.5 || second.Text != "Hello" {
		t.Errorf("second segment = %+v, want speaker B [2, 2.5] %q", second, "Hello")
	}
}

func TestAggregate_GapBeyondThresholdBreaks(t *testing.T) {
	t.Parallel()

	tokens := []segment.Token{
		tok("A", "one", 0, 1),
		tok("A", " two", 2, 2.5), // 1s gap > 0.5 threshold
	}

	segs := segment.Aggregate(tokens)
	if len(segs) != 2 {
		t.Fatalf("Aggregate: got %d segments, want 2", len(segs))
	}

	// A wider threshold keeps them together.
	segs = segment.Aggregate(tokens, segment.WithMergeThreshold(1.5))
	if len(segs) != 1 {
		t.Fatalf("Aggregate with threshold 1.5: got %d segments, want 1", len(segs))
	}
	if segs[0].Text != "one two" {
		t.Errorf("merged text = %q, want %q", segs[0].Text, "one two")
	}
}

func TestAggregate_SkipsEmptyTokens(t *testing.T) {
	t.Parallel()

	tokens := []segment.Token{
		tok("A", "start", 0, 1),
		tok("B", "\u200B", 1.1, 1.2), // sanitizes to empty: must not break the segment
		tok("A", " end", 1.3, 1.6),
	}

	segs := segment.Aggregate(tokens)
	if len(segs) != 1 {
		t.Fatalf("Aggregate: got %d segments, want 1: %+v", len(segs), segs)
	}
	if segs[0].Text != "start end" {
		t.Errorf("text = %q, want %q", segs[0].Text, "start end")
	}
}

func TestAggregate_MillisecondFallback(t *testing.T) {
	t.Parallel()

	tokens := []segment.Token{
		{Text: "ms", Speaker: "A", StartMS: f(500), EndMS: f(900)},
	}

	segs := segment.Aggregate(tokens)
	if len(segs) != 1 {
		t.Fatalf("Aggregate: got %d segments, want 1", len(segs))
	}
	if segs[0].StartTime != 0.5 || segs[0].EndTime != 0.9 {
		t.Errorf("segment timing = [%v, %v], want [0.5, 0.9]", segs[0].StartTime, segs[0].EndTime)
	}
}

func TestAggregate_MissingTimingDefaults(t *testing.T) {
	t.Parallel()

	segs := segment.Aggregate([]segment.Token{{Text: "untimed", Speaker: "A"}})
	if len(segs) != 1 {
		t.Fatalf("Aggregate: got %d segments, want 1", len(segs))
	}
	if segs[0].StartTime != 0 || segs[0].EndTime != 0 {
		t.Errorf("segment timing = [%v, %v], want [0, 0]", segs[0].StartTime, segs[0].EndTime)
	}
}

func TestAggregate_UnitCorrectionAboveThousand(t *testing.T) {
	t.Parallel()

	// A value over 1000 is treated as milliseconds that slipped through.
	tokens := []segment.Token{
		tok("A", "late", 1500, 2000),
	}

	segs := segment.Aggregate(tokens)
	if len(segs) != 1 {
		t.Fatalf("Aggregate: got %d segments, want 1", len(segs))
	}
	if segs[0].StartTime != 1.5 || segs[0].EndTime != 2 {
		t.Errorf("segment timing = [%v, %v], want [1.5, 2]", segs[0].StartTime, segs[0].EndTime)
	}
}

func TestAggregate_RepairsInvertedTiming(t *testing.T) {
	t.Parallel()

	tokens := []segment.Token{
		tok("A", "backwards", 5, 3),
	}

	segs := segment.Aggregate(tokens)
	if len(segs) != 1 {
		t.Fatalf("Aggregate: got %d segments, want 1", len(segs))
	}
	if segs[0].EndTime != 6 {
		t.Errorf("repaired end = %v, want start+1 = 6", segs[0].EndTime)
	}
}

func TestAggregate_MissingSpeakerLabelled(t *testing.T) {
	t.Parallel()

	segs := segment.Aggregate([]segment.Token{tok("", "hello", 0, 1)})
	if len(segs) != 1 {
		t.Fatalf("Aggregate: got %d segments, want 1", len(segs))
	}
	if segs[0].Speaker != "UNKNOWN" {
		t.Errorf("speaker = %q, want UNKNOWN", segs[0].Speaker)
	}
}

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	if segs := segment.Aggregate(nil); len(segs) != 0 {
		t.Errorf("Aggregate(nil) = %+v, want empty", segs)
	}
}
