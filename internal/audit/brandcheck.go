package audit

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	brandPhoneticThreshold = 0.70
	brandFuzzyThreshold    = 0.88
)

// BrandMention is a transcript span judged to be a mention of the brand name,
// including misheard or mistranscribed renderings.
type BrandMention struct {
	// Text is the transcript span that matched.
	Text string
	// Variant is the configured brand variant it matched against.
	Variant string
	// Score is the Jaro-Winkler similarity of the match (0.0-1.0).
	Score float64
}

// BrandChecker detects brand-name mentions in transcript text using Double
// Metaphone phonetic overlap filtered by Jaro-Winkler similarity. Recordings
// of code-switched calls frequently mangle the brand name, so an exact
// substring search misses real mentions; the phonetic pass catches renderings
// like "aditya ram" for "Adityaram".
//
// A BrandChecker is read-only after construction and safe for concurrent use.
type BrandChecker struct {
	variants [][]string
	raw      []string
}

// NewBrandChecker builds a checker over the configured brand name variants.
// Blank variants are dropped; with no usable variants every check reports no
// mentions.
func NewBrandChecker(variants []string) *BrandChecker {
	bc := &BrandChecker{}
	for _, v := range variants {
		tokens := strings.Fields(strings.ToLower(strings.TrimSpace(v)))
		if len(tokens) == 0 {
			continue
		}
		bc.variants = append(bc.variants, tokens)
		bc.raw = append(bc.raw, strings.TrimSpace(v))
	}
	return bc
}

// Check scans text for brand mentions. It slides an n-gram window over the
// transcript words, sized to each variant's word count, and keeps spans that
// share a phonetic code with the variant and clear the similarity threshold.
func (bc *BrandChecker) Check(text string) []BrandMention {
	if len(bc.variants) == 0 {
		return nil
	}
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil
	}

	var mentions []BrandMention
	for vi, variant := range bc.variants {
		variantJoined := strings.Join(variant, " ")
		variantCodes := phoneticCodes(variant)

		// Window sizes of n and n+1 catch both split and fused renderings
		// of an n-word brand.
		for _, size := range []int{len(variant), len(variant) + 1} {
			for i := 0; i+size <= len(words); i++ {
				span := words[i : i+size]
				score := similarity(span, variant, variantJoined)

				// Phonetic overlap admits loose spellings at the lower
				// threshold; without it only near-exact strings pass.
				threshold := brandFuzzyThreshold
				if codesOverlap(phoneticCodes(span), variantCodes) {
					threshold = brandPhoneticThreshold
				}
				if score < threshold {
					continue
				}
				mentions = append(mentions, BrandMention{
					Text:    strings.Join(span, " "),
					Variant: bc.raw[vi],
					Score:   score,
				})
			}
		}
	}
	return dedupeMentions(mentions)
}

// Found reports whether text contains at least one brand mention.
func (bc *BrandChecker) Found(text string) bool {
	return len(bc.Check(text)) > 0
}

// phoneticCodes returns the union of Double Metaphone codes for the tokens.
func phoneticCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// similarity is the best Jaro-Winkler score across full-string and
// space-stripped comparisons of the span against the variant.
func similarity(span, variant []string, variantJoined string) float64 {
	spanJoined := strings.Join(span, " ")
	score := matchr.JaroWinkler(spanJoined, variantJoined, false)
	if s := matchr.JaroWinkler(strings.Join(span, ""), strings.Join(variant, ""), false); s > score {
		score = s
	}
	return score
}

// dedupeMentions keeps the best-scoring mention per matched span text.
func dedupeMentions(mentions []BrandMention) []BrandMention {
	if len(mentions) < 2 {
		return mentions
	}
	best := make(map[string]BrandMention, len(mentions))
	var order []string
	for _, m := range mentions {
		cur, ok := best[m.Text]
		if !ok {
			order = append(order, m.Text)
		}
		if !ok || m.Score > cur.Score {
			best[m.Text] = m
		}
	}
	out := make([]BrandMention, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}
