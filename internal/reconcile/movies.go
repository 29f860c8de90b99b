package reconcile

import (
	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/match"
	"github.com/drewfead/marquee/internal/normalize"
)

// MovieMatch links one showtime movie label to the box-office movie it best matches.
type MovieMatch struct {
	Label   string               `json:"label"`
	MovieID string               `json:"movie_id,omitempty"`
	Title   string               `json:"title,omitempty"`
	Result  internal.MatchResult `json:"result"`
}

// MovieReport lists every distinct showtime movie label and where it landed.
type MovieReport struct {
	Matched   []MovieMatch `json:"matched"`
	Unmatched []MovieMatch `json:"unmatched"`
}

// Movies matches each distinct showtime movie against the box-office list. A showtime whose movie
// id equals a box-office id matches exactly; otherwise its label is scored against every title
// variant and the first best match wins. Labels are reported in first-seen order.
func Movies(showtimes []internal.Showtime, entries []internal.BoxOfficeEntry, cfg Config) MovieReport {
	n := cfg.Normalizer
	if n == nil {
		n = normalize.Default()
	}

	titleKeys := make([][]string, len(entries))
	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		for _, t := range e.Movie.Titles() {
			titleKeys[i] = append(titleKeys[i], n.Name(t))
		}
		if _, dup := byID[e.Movie.ID]; !dup && e.Movie.ID != "" {
			byID[e.Movie.ID] = i
		}
	}

	report := MovieReport{Matched: []MovieMatch{}, Unmatched: []MovieMatch{}}
	seen := make(map[string]bool)
	for _, st := range showtimes {
		label := internal.Movie{ID: st.MovieID, QueryHint: st.MovieLabel}.DisplayTitle()
		key := st.MovieID + "\x00" + st.MovieLabel
		if label == "" || seen[key] {
			continue
		}
		seen[key] = true

		m := MovieMatch{Label: label}
		idx := -1
		if i, ok := byID[st.MovieID]; ok && st.MovieID != "" {
			idx = i
			m.Result = internal.MatchResult{Matched: true, Score: match.ExactScore, Reason: internal.MatchReasonExact}
		} else {
			idx, m.Result = match.Best([]string{n.Name(st.MovieLabel)}, titleKeys, cfg.Movie)
		}
		if idx < 0 {
			report.Unmatched = append(report.Unmatched, m)
			continue
		}
		m.MovieID = entries[idx].Movie.ID
		m.Title = entries[idx].Movie.DisplayTitle()
		report.Matched = append(report.Matched, m)
	}
	return report
}

// Showtimes flattens every showtime of every block, in block order.
func Showtimes(blocks []internal.TheaterBlock) []internal.Showtime {
	var out []internal.Showtime
	for _, b := range blocks {
		for _, bucket := range b.ShowtimesByDate {
			out = append(out, bucket.Showtimes...)
		}
	}
	return out
}
