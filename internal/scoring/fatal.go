package scoring

import "sort"

// DefaultFatalCriteria lists the criterion ids that gate the overall score
// when no explicit policy is configured: brand introduction, factual
// accuracy, professional conduct and tone.
var DefaultFatalCriteria = []string{
	"brand_intro",
	"project_knowledge_accuracy",
	"professional",
	"tone_voice_modulation",
}

// FatalPolicy designates the criteria whose zero score zeroes the whole
// report. The set is injected from configuration so the rubric and the
// fatal policy can evolve independently. Fatal criteria are evaluated and
// reported but never count toward awarded totals; the gate applies in
// granular mode only.
type FatalPolicy struct {
	ids map[string]struct{}
}

// NewFatalPolicy builds a policy from the given criterion ids.
func NewFatalPolicy(ids ...string) FatalPolicy {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return FatalPolicy{ids: set}
}

// DefaultFatalPolicy returns a policy over [DefaultFatalCriteria].
func DefaultFatalPolicy() FatalPolicy {
	return NewFatalPolicy(DefaultFatalCriteria...)
}

// IsFatal reports whether the criterion id is under the fatal gate.
func (p FatalPolicy) IsFatal(id string) bool {
	_, ok := p.ids[id]
	return ok
}

// IDs returns the fatal criterion ids in sorted order.
func (p FatalPolicy) IDs() []string {
	ids := make([]string, 0, len(p.ids))
	for id := range p.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
