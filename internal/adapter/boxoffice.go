package adapter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/drewfead/marquee/internal"
	"github.com/google/uuid"
)

// TMDBImageBase prefixes TMDB poster paths.
const TMDBImageBase = "https://image.tmdb.org/t/p/w500"

type rawBoxOffice struct {
	ID           flexString `json:"id"`
	MovieID      flexString `json:"movie_id"`
	Rank         flexInt    `json:"rank"`
	Tickets      flexInt    `json:"tickets"`
	ReleaseDate  flexString `json:"release_date"`
	PosterURL    flexString `json:"poster_url"`
	PosterPath   flexString `json:"poster_path"`
	Title        flexString `json:"title"`
	FullTitle    flexString `json:"full_title"`
	ChineseTitle flexString `json:"chinese_title"`
	EnglishTitle flexString `json:"english_title"`
	TMDBID       flexInt    `json:"tmdb_id"`
}

// DecodeBoxOffice adapts a box-office payload. Rows keep feed order. Rows without any title are
// dropped.
func DecodeBoxOffice(data []byte) ([]internal.BoxOfficeEntry, error) {
	elems, err := elements(data, string(internal.FeedBoxOffice))
	if err != nil {
		return nil, err
	}
	raws := decodeEach[rawBoxOffice](elems, string(internal.FeedBoxOffice))
	entries := make([]internal.BoxOfficeEntry, 0, len(raws))
	for i, raw := range raws {
		m := internal.Movie{
			ID:             first(raw.MovieID, raw.ID),
			FullTitle:      first(raw.FullTitle, raw.Title),
			LocalizedTitle: string(raw.ChineseTitle),
			ForeignTitle:   string(raw.EnglishTitle),
			ReleaseDate:    ReleaseDate(string(raw.ReleaseDate)),
			TMDBID:         raw.TMDBID.Value,
		}
		if m.FullTitle == "" {
			m.FullTitle = first(m.LocalizedTitle, m.ForeignTitle)
		}
		if m.FullTitle == "" {
			slog.Debug("adapter: skipped box-office row without title", "index", i)
			continue
		}
		if m.ID == "" {
			m.ID = uuid.NewSHA1(movieNamespace, []byte(m.FullTitle)).String()
		}
		entries = append(entries, internal.BoxOfficeEntry{
			Movie:     m,
			Rank:      int(raw.Rank.Value),
			Tickets:   raw.Tickets.Value,
			PosterURL: PosterURL(string(raw.PosterURL), string(raw.PosterPath)),
		})
	}
	return entries, nil
}

// ReleaseDate drops the time part of a timestamp.
func ReleaseDate(raw string) string {
	date, _, _ := strings.Cut(strings.TrimSpace(raw), "T")
	return date
}

// PosterURL prefers an absolute poster URL and expands a TMDB poster path otherwise.
func PosterURL(url, path string) string {
	if url != "" {
		if strings.HasPrefix(url, "/") {
			return TMDBImageBase + url
		}
		return url
	}
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return TMDBImageBase + path
}

// FormatTickets renders a ticket count with 億, 萬 or 千 units and one decimal.
func FormatTickets(n int64) string {
	switch {
	case n >= 100_000_000:
		return fmt.Sprintf("%.1f億", float64(n)/100_000_000)
	case n >= 10_000:
		return fmt.Sprintf("%.1f萬", float64(n)/10_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1f千", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}
