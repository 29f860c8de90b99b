package normalize

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

//go:embed affixes.toml
var defaultAffixesTOML []byte

// strippedPunct are the bracket and quote characters removed from every name.
const strippedPunct = "-[]()「」【】《》“”‘’"

// Affixes is the editable table of chain tokens stripped from theater names.
type Affixes struct {
	Suffixes []string `toml:"suffixes"`
	Prefixes []string `toml:"prefixes"`
}

// ParseAffixes reads an affix table in the affixes.toml format.
func ParseAffixes(data []byte) (Affixes, error) {
	var a Affixes
	if err := toml.Unmarshal(data, &a); err != nil {
		return Affixes{}, fmt.Errorf("parse affix table: %w", err)
	}
	return a, nil
}

var defaultAffixes = sync.OnceValue(func() Affixes {
	a, err := ParseAffixes(defaultAffixesTOML)
	if err != nil {
		panic(err)
	}
	return a
})

// DefaultAffixes returns the embedded affix table.
func DefaultAffixes() Affixes {
	a := defaultAffixes()
	return Affixes{
		Suffixes: slices.Clone(a.Suffixes),
		Prefixes: slices.Clone(a.Prefixes),
	}
}

// Normalizer canonicalizes movie and theater names. It is immutable and safe for concurrent use.
type Normalizer struct {
	suffixes []string
	prefixes []string
}

// New builds a Normalizer from an affix table. Entries are normalized like names and ordered
// longest first so that "數位影城" wins over "影城".
func New(affixes Affixes) *Normalizer {
	return &Normalizer{
		suffixes: prepareAffixes(affixes.Suffixes),
		prefixes: prepareAffixes(affixes.Prefixes),
	}
}

var defaultNormalizer = sync.OnceValue(func() *Normalizer {
	return New(defaultAffixes())
})

// Default returns the Normalizer built from the embedded affix table.
func Default() *Normalizer {
	return defaultNormalizer()
}

// Name normalizes a movie name with the default table.
func Name(s string) string {
	return Default().Name(s)
}

// Theater normalizes a theater name with the default table.
func Theater(s string) string {
	return Default().Theater(s)
}

func prepareAffixes(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		a = theaterBase(a)
		if a == "" || slices.Contains(out, a) {
			continue
		}
		out = append(out, a)
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})
	return out
}

// Name folds width and Latin diacritics, drops whitespace and the bracket/quote set, and
// lower-cases. The result is idempotent: Name(Name(s)) == Name(s).
func (n *Normalizer) Name(s string) string {
	return name(s)
}

func name(s string) string {
	if s == "" {
		return ""
	}
	s = width.Fold.String(s)

	var folded strings.Builder
	for _, r := range s {
		if r > unicode.MaxASCII && unicode.Is(unicode.Latin, r) {
			folded.WriteString(unidecode.Unidecode(string(r)))
			continue
		}
		folded.WriteRune(r)
	}

	var b strings.Builder
	for _, r := range folded.String() {
		if unicode.IsSpace(r) || strings.ContainsRune(strippedPunct, r) {
			continue
		}
		b.WriteRune(r)
	}
	// cases.Caser is stateful, so one per call.
	return cases.Lower(language.Und).String(b.String())
}

// Theater is Name plus removal of every non letter/digit rune and of the chain affixes.
func (n *Normalizer) Theater(s string) string {
	return n.stripAffixes(theaterBase(s), true)
}

// TheaterKeys returns the comparable keys for a theater name: the full Theater form first, then
// the form that keeps the chain brand when it differs. Brand-only directory names ("美麗華影城")
// can then still be compared with branch names ("美麗華大直影城").
func (n *Normalizer) TheaterKeys(s string) []string {
	base := theaterBase(s)
	full := n.stripAffixes(base, true)
	if full == "" {
		return nil
	}
	keys := []string{full}
	if branded := n.stripAffixes(base, false); branded != full {
		keys = append(keys, branded)
	}
	return keys
}

func theaterBase(s string) string {
	folded := name(s)
	if folded == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripAffixes removes suffixes (and prefixes when brands is set) until nothing more applies. An
// affix is never removed when that would leave the name empty.
func (n *Normalizer) stripAffixes(s string, brands bool) string {
	for changed := true; changed; {
		changed = false
		for _, suffix := range n.suffixes {
			if rest, ok := strings.CutSuffix(s, suffix); ok && rest != "" {
				s, changed = rest, true
				break
			}
		}
		if !brands {
			continue
		}
		for _, prefix := range n.prefixes {
			if rest, ok := strings.CutPrefix(s, prefix); ok && rest != "" {
				s, changed = rest, true
				break
			}
		}
	}
	return s
}
