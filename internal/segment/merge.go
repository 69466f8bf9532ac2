package segment

import "strings"

// MergeConsecutive coalesces every pair of adjacent segments that share a
// speaker, regardless of the time gap between them. Raw provider output can
// flip speaker ids or split a turn at a silence boundary; the gap-aware pass
// in [Aggregate] keeps true gap information, while this final pass ensures a
// speaker's continuous turn is never rendered as multiple rows.
//
// Merged text is the trim-sanitized concatenation of both texts with a
// single separating space; the merged end time is the later segment's end.
// The operation is idempotent: merging an already-merged list is a no-op.
func MergeConsecutive(segs []Segment) []Segment {
	if len(segs) == 0 {
		return []Segment{}
	}

	merged := make([]Segment, 0, len(segs))
	cur := segs[0]

	for _, next := range segs[1:] {
		if cur.Speaker != next.Speaker {
			merged = append(merged, cur)
			cur = next
			continue
		}
		cur.EndTime = next.EndTime
		cur.Duration = round2(cur.EndTime - cur.StartTime)
		cur.Text = Sanitize(strings.TrimSpace(cur.Text) + " " + strings.TrimSpace(next.Text))
	}

	return append(merged, cur)
}
