package internal

import (
	"fmt"
	"strings"
)

// Movie is the canonical movie record after box-office and showtime identities are resolved.
type Movie struct {
	ID             string `json:"id"`
	FullTitle      string `json:"full_title"`
	LocalizedTitle string `json:"localized_title,omitempty"` // chinese_title in the feeds
	ForeignTitle   string `json:"foreign_title,omitempty"`   // english_title in the feeds
	ReleaseDate    string `json:"release_date,omitempty"`
	TMDBID         int64  `json:"tmdb_id,omitempty"`
	// QueryHint is the raw string the movie was looked up by; last resort for DisplayTitle.
	QueryHint string `json:"-"`
}

// DisplayTitle falls back through localized title, full title and the raw query string.
func (m Movie) DisplayTitle() string {
	for _, s := range []string{m.LocalizedTitle, m.FullTitle, m.QueryHint} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return m.ID
}

// Titles returns every non-empty title variant, localized first.
func (m Movie) Titles() []string {
	out := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	for _, s := range []string{m.LocalizedTitle, m.FullTitle, m.ForeignTitle} {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// BoxOfficeEntry is one ranked row of the box-office feed.
type BoxOfficeEntry struct {
	Movie     Movie  `json:"movie"`
	Rank      int    `json:"rank"`
	Tickets   int64  `json:"tickets"`
	PosterURL string `json:"poster_url,omitempty"`
}

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Cinema is a canonical directory entry. Synthetic is set when the record was fabricated from
// showtime data; its coordinate is then the configured fallback point, not a geocode.
type Cinema struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	City      string  `json:"city,omitempty"`
	District  string  `json:"district,omitempty"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Synthetic bool    `json:"synthetic,omitempty"`
	// DefaultedLocation is set when the directory row lacked a usable coordinate.
	DefaultedLocation bool `json:"defaulted_location,omitempty"`
}

func (c Cinema) Location() LatLng {
	return LatLng{Lat: c.Latitude, Lng: c.Longitude}
}

// Showtime is a single screening, immutable once built.
type Showtime struct {
	Time        string   `json:"time"` // HH:MM
	MovieID     string   `json:"movie_id,omitempty"`
	MovieLabel  string   `json:"movie_label,omitempty"`
	Language    string   `json:"language,omitempty"`
	Attributes  []string `json:"attributes,omitempty"`
	TicketPrice int      `json:"ticket_price,omitempty"`
	BookingLink string   `json:"booking_link,omitempty"`
}

// DateBucket holds the showtimes a source reported under one date field. Date is the raw value
// (ISO date, timestamp or relative label); it is resolved by the schedule package.
type DateBucket struct {
	Date      string     `json:"date"`
	Showtimes []Showtime `json:"showtimes"`
}

// TheaterBlock is the canonical shape every per-source theater payload is adapted into.
type TheaterBlock struct {
	TheaterID       string       `json:"theater_id"`
	TheaterName     string       `json:"theater_name"`
	ShowtimesByDate []DateBucket `json:"showtimes_by_date"`
	// GeneratedID is set when the source carried no identifier and TheaterID was derived.
	GeneratedID bool `json:"generated_id,omitempty"`
}

// HasShowtimes reports whether any bucket carries at least one showtime.
func (b TheaterBlock) HasShowtimes() bool {
	for _, bucket := range b.ShowtimesByDate {
		if len(bucket.Showtimes) > 0 {
			return true
		}
	}
	return false
}

type MatchReason uint8

const (
	MatchReasonNone MatchReason = iota
	MatchReasonExact
	MatchReasonContainment
	MatchReasonNumericVariant
	MatchReasonPartialPrefix
)

func (r MatchReason) String() string {
	switch r {
	case MatchReasonExact:
		return "exact"
	case MatchReasonContainment:
		return "containment"
	case MatchReasonNumericVariant:
		return "numeric-variant"
	case MatchReasonPartialPrefix:
		return "partial-prefix"
	}
	return "none"
}

func (r MatchReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *MatchReason) UnmarshalText(b []byte) error {
	for c := MatchReasonNone; c <= MatchReasonPartialPrefix; c++ {
		if c.String() == string(b) {
			*r = c
			return nil
		}
	}
	return fmt.Errorf("unknown match reason %q", b)
}

// MatchResult is the outcome of comparing two normalized names. Score is 0..100.
type MatchResult struct {
	Matched bool        `json:"matched"`
	Score   int         `json:"score"`
	Reason  MatchReason `json:"reason"`
}

// DateTab is one entry of the today/tomorrow/day-after-tomorrow selector.
type DateTab struct {
	Label string `json:"label"`
	Date  string `json:"date"` // YYYY-MM-DD
}
