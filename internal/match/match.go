package match

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/drewfead/marquee/internal"
)

const (
	ExactScore          = 100
	NumericVariantScore = 90
	PartialPrefixScore  = 50

	containmentWeight = 0.8
	prefixRunes       = 3
	subtitleSeparator = ":"
)

var numericVariant = regexp.MustCompile(`(\D+)(\d+)`)

// Options tunes the scoring thresholds for one call site.
type Options struct {
	// ContainmentThreshold is the minimum containment score that counts as a match.
	ContainmentThreshold int `toml:"containment_threshold" validate:"min=0,max=100"`
	// PartialPrefix enables the three-rune prefix fallback.
	PartialPrefix bool `toml:"partial_prefix"`
	PrefixMinimum int  `toml:"prefix_minimum" validate:"min=0,max=100"`
}

// MovieOptions is the strict setting used for movie titles.
func MovieOptions() Options {
	return Options{ContainmentThreshold: 80}
}

// TheaterOptions is the lenient setting used for theater names.
func TheaterOptions() Options {
	return Options{
		ContainmentThreshold: 50,
		PartialPrefix:        true,
		PrefixMinimum:        50,
	}
}

// Score compares two already-normalized names. Rules run in order: exact, numeric variant,
// containment, partial prefix. The first rule that matches wins; when none match, the best
// scoring rule that applied is returned unmatched. Empty operands never match.
func Score(a, b string, opts Options) internal.MatchResult {
	none := internal.MatchResult{Reason: internal.MatchReasonNone}
	if a == "" || b == "" {
		return none
	}
	if a == b {
		return internal.MatchResult{Matched: true, Score: ExactScore, Reason: internal.MatchReasonExact}
	}
	if sameNumericVariant(a, b) {
		return internal.MatchResult{Matched: true, Score: NumericVariantScore, Reason: internal.MatchReasonNumericVariant}
	}

	best := none
	if score, ok := containmentScore(a, b); ok {
		r := internal.MatchResult{
			Matched: score >= opts.ContainmentThreshold,
			Score:   score,
			Reason:  internal.MatchReasonContainment,
		}
		if r.Matched {
			return r
		}
		best = r
	}
	if opts.PartialPrefix && sharesPrefix(a, b) {
		r := internal.MatchResult{
			Matched: PartialPrefixScore >= opts.PrefixMinimum,
			Score:   PartialPrefixScore,
			Reason:  internal.MatchReasonPartialPrefix,
		}
		if r.Matched || r.Score > best.Score {
			return r
		}
	}
	return best
}

// ScoreKeys scores every pair of keys and returns the best result. A match always beats a
// non-match; among equals the earlier pair wins.
func ScoreKeys(as, bs []string, opts Options) internal.MatchResult {
	best := internal.MatchResult{Reason: internal.MatchReasonNone}
	for _, a := range as {
		for _, b := range bs {
			if r := Score(a, b, opts); Better(r, best) {
				best = r
			}
		}
	}
	return best
}

// Better reports whether r should replace best: matched results outrank unmatched ones, then
// the higher score wins. Ties keep best.
func Better(r, best internal.MatchResult) bool {
	if r.Matched != best.Matched {
		return r.Matched
	}
	return r.Score > best.Score
}

// Best scores keys against each candidate's keys and returns the index of the first candidate
// with the highest matching score, or -1 when no candidate matches. The returned result is the
// best seen even when nothing matched.
func Best(keys []string, candidates [][]string, opts Options) (int, internal.MatchResult) {
	idx := -1
	best := internal.MatchResult{Reason: internal.MatchReasonNone}
	if len(keys) == 0 {
		return idx, best
	}
	for i, c := range candidates {
		r := ScoreKeys(keys, c, opts)
		if !Better(r, best) {
			continue
		}
		best = r
		if r.Matched {
			idx = i
		}
	}
	return idx, best
}

func sameNumericVariant(a, b string) bool {
	ma := numericVariant.FindStringSubmatch(a)
	mb := numericVariant.FindStringSubmatch(b)
	if ma == nil || mb == nil {
		return false
	}
	return ma[1] == mb[1] && ma[2] == mb[2]
}

// containmentScore reports whether one operand contains the other and the resulting score.
// When the longer operand carries a subtitle and the shorter one sits in its head, the head
// is the denominator, so a bare title scores well against "title: subtitle".
func containmentScore(a, b string) (int, bool) {
	shorter, longer := a, b
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return 0, false
	}
	denominator := longer
	if head, _, ok := strings.Cut(longer, subtitleSeparator); ok && head != "" && strings.Contains(head, shorter) {
		denominator = head
	}
	ratio := float64(utf8.RuneCountInString(shorter)) / float64(utf8.RuneCountInString(denominator))
	return int(math.Round(100 * ratio * containmentWeight)), true
}

func sharesPrefix(a, b string) bool {
	if utf8.RuneCountInString(a) < prefixRunes || utf8.RuneCountInString(b) < prefixRunes {
		return false
	}
	return strings.HasPrefix(b, firstRunes(a, prefixRunes)) || strings.HasPrefix(a, firstRunes(b, prefixRunes))
}

func firstRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
