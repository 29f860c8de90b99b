package reconcile

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/geo"
	"github.com/drewfead/marquee/internal/match"
	"github.com/drewfead/marquee/internal/normalize"
	"github.com/google/uuid"
)

var syntheticNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("marquee:synthetic-cinema"))

// Config carries the knobs the reconciler needs. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	Normalizer *normalize.Normalizer
	Theater    match.Options
	Movie      match.Options
	// Fallback is the coordinate given to synthesized cinemas.
	Fallback internal.LatLng
}

func DefaultConfig() Config {
	return Config{
		Normalizer: normalize.Default(),
		Theater:    match.TheaterOptions(),
		Movie:      match.MovieOptions(),
		Fallback:   geo.DefaultFallback,
	}
}

type LinkKind string

const (
	LinkByID      LinkKind = "id"
	LinkByName    LinkKind = "name"
	LinkSynthetic LinkKind = "synthetic"
)

// Link records how one raw block was attached to a cinema.
type Link struct {
	TheaterID   string               `json:"theater_id"`
	TheaterName string               `json:"theater_name"`
	CinemaID    string               `json:"cinema_id"`
	Kind        LinkKind             `json:"kind"`
	Result      internal.MatchResult `json:"result"`
}

// TheaterResult maps cinema ids to the showtime block reconciled onto them.
type TheaterResult struct {
	Blocks map[string]internal.TheaterBlock `json:"blocks"`
	// Cinemas holds every cinema that received a block: directory entries in directory order,
	// then synthesized ones in block order.
	Cinemas []internal.Cinema `json:"cinemas"`
	Links   []Link            `json:"links"`
}

// Theaters attaches each raw block to a directory cinema, by exact id first and by theater name
// second. Equal name scores resolve to the earliest directory entry. A block that matches nothing
// but has a name gets a synthetic cinema at the fallback coordinate; a block with neither a
// usable id nor a name is dropped. Blocks landing on the same cinema have their buckets merged in
// input order.
func Theaters(blocks []internal.TheaterBlock, directory []internal.Cinema, cfg Config) TheaterResult {
	n := cfg.Normalizer
	if n == nil {
		n = normalize.Default()
	}

	byID := make(map[string]int, len(directory))
	dirKeys := make([][]string, len(directory))
	for i, c := range directory {
		if _, dup := byID[c.ID]; !dup && c.ID != "" {
			byID[c.ID] = i
		}
		dirKeys[i] = n.TheaterKeys(c.Name)
	}

	res := TheaterResult{Blocks: make(map[string]internal.TheaterBlock)}
	matched := make(map[int]bool)
	var synthetic []internal.Cinema

	for _, block := range blocks {
		link := Link{TheaterID: block.TheaterID, TheaterName: block.TheaterName}
		switch idx, r, kind := locate(block, byID, dirKeys, n, cfg.Theater); {
		case idx >= 0:
			link.CinemaID, link.Kind, link.Result = directory[idx].ID, kind, r
			matched[idx] = true
		case strings.TrimSpace(block.TheaterName) != "":
			c := internal.Cinema{
				ID:        uuid.NewSHA1(syntheticNamespace, []byte(block.TheaterName)).String(),
				Name:      block.TheaterName,
				Latitude:  cfg.Fallback.Lat,
				Longitude: cfg.Fallback.Lng,
				Synthetic: true,
			}
			if _, seen := res.Blocks[c.ID]; !seen {
				synthetic = append(synthetic, c)
			}
			link.CinemaID, link.Kind, link.Result = c.ID, LinkSynthetic, r
			slog.Debug("reconcile: synthesized cinema", "theater_id", block.TheaterID, "name", block.TheaterName, "best_score", r.Score)
		default:
			slog.Debug("reconcile: skipped block without usable id or name", "theater_id", block.TheaterID)
			continue
		}

		res.Links = append(res.Links, link)
		res.Blocks[link.CinemaID] = merge(res.Blocks[link.CinemaID], block)
	}

	for i, c := range directory {
		if matched[i] {
			res.Cinemas = append(res.Cinemas, c)
		}
	}
	res.Cinemas = append(res.Cinemas, synthetic...)
	return res
}

func locate(
	block internal.TheaterBlock,
	byID map[string]int,
	dirKeys [][]string,
	n *normalize.Normalizer,
	opts match.Options,
) (int, internal.MatchResult, LinkKind) {
	if block.TheaterID != "" && !block.GeneratedID {
		if i, ok := byID[block.TheaterID]; ok {
			return i, internal.MatchResult{Matched: true, Score: match.ExactScore, Reason: internal.MatchReasonExact}, LinkByID
		}
	}
	idx, r := match.Best(n.TheaterKeys(block.TheaterName), dirKeys, opts)
	return idx, r, LinkByName
}

func merge(into, block internal.TheaterBlock) internal.TheaterBlock {
	if into.TheaterID == "" && into.TheaterName == "" {
		into.TheaterID = block.TheaterID
		into.TheaterName = block.TheaterName
		into.GeneratedID = block.GeneratedID
	}
	into.ShowtimesByDate = append(into.ShowtimesByDate, block.ShowtimesByDate...)
	return into
}

// RawNames lists, per cinema id, the distinct raw theater names reconciled onto it in link order.
func (r TheaterResult) RawNames() map[string][]string {
	names := make(map[string][]string, len(r.Blocks))
	for _, l := range r.Links {
		if strings.TrimSpace(l.TheaterName) == "" || slices.Contains(names[l.CinemaID], l.TheaterName) {
			continue
		}
		names[l.CinemaID] = append(names[l.CinemaID], l.TheaterName)
	}
	return names
}

// FilterByQuery keeps the cinemas whose directory name, or any raw theater name reconciled onto
// them, contains the theater-normalized query. Every comparable form of each name is tried, so
// "美麗華" finds "美麗華大直影城" and "大直" finds a 美麗華影城 entry fed by a 美麗華大直影城 block.
// rawNames may be nil. An empty query keeps all.
func FilterByQuery(cinemas []internal.Cinema, rawNames map[string][]string, query string, n *normalize.Normalizer) []internal.Cinema {
	if n == nil {
		n = normalize.Default()
	}
	q := n.Theater(query)
	if q == "" {
		return cinemas
	}
	out := make([]internal.Cinema, 0, len(cinemas))
	for _, c := range cinemas {
		names := append([]string{c.Name}, rawNames[c.ID]...)
		if slices.ContainsFunc(names, func(name string) bool { return nameContains(n, name, q) }) {
			out = append(out, c)
		}
	}
	return out
}

func nameContains(n *normalize.Normalizer, name, q string) bool {
	forms := append(n.TheaterKeys(name), n.Name(name))
	return slices.ContainsFunc(forms, func(f string) bool { return strings.Contains(f, q) })
}
