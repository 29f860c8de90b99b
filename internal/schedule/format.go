package schedule

import (
	"fmt"
	"strings"

	"github.com/drewfead/marquee/internal"
)

const (
	DefaultType     = "數位"
	DefaultLanguage = "國語"
	PriceOnRequest  = "洽詢影城"
)

// Formatted is a showtime ready for display under one cinema and date.
type Formatted struct {
	ID          string   `json:"id"`
	TheaterID   string   `json:"theater_id"`
	TheaterName string   `json:"theater_name"`
	MovieID     string   `json:"movie_id,omitempty"`
	MovieLabel  string   `json:"movie_label,omitempty"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Type        string   `json:"type"`
	Language    string   `json:"language"`
	Price       string   `json:"price"`
	TicketPrice int      `json:"ticket_price,omitempty"`
	Link        string   `json:"link,omitempty"`
	Attributes  []string `json:"attributes,omitempty"`
}

// Format builds the display record for the index-th showtime of a cinema on date.
func Format(cinema internal.Cinema, date string, index int, st internal.Showtime) Formatted {
	typ := DefaultType
	if len(st.Attributes) > 0 {
		typ = strings.Join(st.Attributes, " / ")
	}
	lang := st.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	price := PriceOnRequest
	if st.TicketPrice > 0 {
		price = fmt.Sprintf("NT$ %d", st.TicketPrice)
	}
	return Formatted{
		ID:          fmt.Sprintf("%s-%s-%s-%s-%d", cinema.ID, st.MovieID, date, st.Time, index),
		TheaterID:   cinema.ID,
		TheaterName: cinema.Name,
		MovieID:     st.MovieID,
		MovieLabel:  st.MovieLabel,
		Date:        date,
		Time:        st.Time,
		Type:        typ,
		Language:    lang,
		Price:       price,
		TicketPrice: st.TicketPrice,
		Link:        st.BookingLink,
		Attributes:  st.Attributes,
	}
}

// FormatAll formats a cinema's showtimes for one date.
func FormatAll(cinema internal.Cinema, date string, sts []internal.Showtime) []Formatted {
	out := make([]Formatted, len(sts))
	for i, st := range sts {
		out[i] = Format(cinema, date, i, st)
	}
	return out
}
