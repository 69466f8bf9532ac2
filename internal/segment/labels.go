package segment

import "fmt"

// NormalizeSpeakers renames raw speaker identifiers to sequential
// human-readable labels ("Speaker 1", "Speaker 2", …) in order of first
// appearance. The mapping is total and deterministic within one call: every
// raw identifier maps to exactly one label, reused consistently. Segment
// boundaries, ordering, and count are untouched. Labels are not stable
// across calls — "Speaker 1" may be a different physical speaker next time.
func NormalizeSpeakers(segs []Segment) []Segment {
	if len(segs) == 0 {
		return []Segment{}
	}

	labels := make(map[string]string, 2)
	next := 1

	out := make([]Segment, len(segs))
	for i, s := range segs {
		label, ok := labels[s.Speaker]
		if !ok {
			label = fmt.Sprintf("Speaker %d", next)
			labels[s.Speaker] = label
			next++
		}
		s.Speaker = label
		out[i] = s
	}
	return out
}
