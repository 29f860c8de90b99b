package adapter

import (
	"log/slog"

	"github.com/drewfead/marquee/internal"
	"github.com/google/uuid"
)

var (
	theaterNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("marquee:theater"))
	cinemaNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("marquee:cinema"))
	movieNamespace   = uuid.NewSHA1(uuid.NameSpaceURL, []byte("marquee:movie"))
)

type rawShowtime struct {
	Time             flexString  `json:"time"`
	Date             flexString  `json:"date"`
	MovieID          flexString  `json:"movie_id"`
	MovieIDCamel     flexString  `json:"movieId"`
	DisplayTitle     flexString  `json:"movie_display_title"`
	ChineseTitle     flexString  `json:"movie_chinese_title"`
	MovieName        flexString  `json:"movie_name"`
	MovieNameCamel   flexString  `json:"movieName"`
	FullTitle        flexString  `json:"movie_full_title"`
	EnglishTitle     flexString  `json:"movie_english_title"`
	Lang             flexString  `json:"lang"`
	Language         flexString  `json:"language"`
	Type             flexString  `json:"type"`
	Attributes       flexStrings `json:"attributes"`
	TicketPrice      flexInt     `json:"ticket_price"`
	TicketPriceCamel flexInt     `json:"ticketPrice"`
	BookingLink      flexString  `json:"booking_link"`
	BookingLinkCamel flexString  `json:"bookingLink"`
	Link             flexString  `json:"link"`
}

func (r rawShowtime) canonical() internal.Showtime {
	attrs := []string(r.Attributes)
	if len(attrs) == 0 && r.Type != "" {
		attrs = []string{string(r.Type)}
	}
	price := r.TicketPrice
	if !price.Set {
		price = r.TicketPriceCamel
	}
	return internal.Showtime{
		Time:        string(r.Time),
		MovieID:     first(r.MovieID, r.MovieIDCamel),
		MovieLabel:  first(r.DisplayTitle, r.ChineseTitle, r.MovieName, r.MovieNameCamel, r.FullTitle, r.EnglishTitle),
		Language:    first(r.Lang, r.Language),
		Attributes:  attrs,
		TicketPrice: int(max(price.Value, 0)),
		BookingLink: first(r.BookingLink, r.BookingLinkCamel, r.Link),
	}
}

type rawDateGroup struct {
	Date      flexString            `json:"date"`
	Showtimes flexList[rawShowtime] `json:"showtimes"`
}

type rawTheaterBlock struct {
	TheaterID        flexString             `json:"theater_id"`
	TheaterIDCamel   flexString             `json:"theaterId"`
	ID               flexString             `json:"id"`
	TheaterName      flexString             `json:"theater_name"`
	TheaterNameCamel flexString             `json:"theaterName"`
	Name             flexString             `json:"name"`
	Showtimes        flexList[rawShowtime]  `json:"showtimes"`
	ByDate           flexList[rawDateGroup] `json:"showtimes_by_date"`
	ByDateCamel      flexList[rawDateGroup] `json:"showtimesByDate"`
}

// DecodeTheaterBlocks adapts a showtimes payload into canonical blocks. Grouped blocks keep their
// buckets as given. Flat blocks are bucketed by each showtime's own date, or by defaultDate when a
// showtime carries none. A block without an identifier gets one derived from its name; a block
// with neither is dropped.
func DecodeTheaterBlocks(data []byte, defaultDate string) ([]internal.TheaterBlock, error) {
	elems, err := elements(data, string(internal.FeedShowtimes))
	if err != nil {
		return nil, err
	}
	raws := decodeEach[rawTheaterBlock](elems, string(internal.FeedShowtimes))
	blocks := make([]internal.TheaterBlock, 0, len(raws))
	for i, raw := range raws {
		block, ok := raw.canonical(defaultDate)
		if !ok {
			slog.Debug("adapter: skipped theater block without id or name", "index", i)
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func (r rawTheaterBlock) canonical(defaultDate string) (internal.TheaterBlock, bool) {
	block := internal.TheaterBlock{
		TheaterID:   first(r.TheaterID, r.TheaterIDCamel, r.ID),
		TheaterName: first(r.TheaterName, r.TheaterNameCamel, r.Name),
	}
	if block.TheaterID == "" {
		if block.TheaterName == "" {
			return internal.TheaterBlock{}, false
		}
		block.TheaterID = uuid.NewSHA1(theaterNamespace, []byte(block.TheaterName)).String()
		block.GeneratedID = true
	}

	groups := r.ByDate
	if len(groups) == 0 {
		groups = r.ByDateCamel
	}
	if len(groups) > 0 {
		for _, g := range groups {
			bucket := internal.DateBucket{Date: string(g.Date), Showtimes: make([]internal.Showtime, 0, len(g.Showtimes))}
			for _, st := range g.Showtimes {
				bucket.Showtimes = append(bucket.Showtimes, st.canonical())
			}
			block.ShowtimesByDate = append(block.ShowtimesByDate, bucket)
		}
		return block, true
	}

	index := make(map[string]int)
	for _, st := range r.Showtimes {
		date := first(st.Date, flexString(defaultDate))
		i, ok := index[date]
		if !ok {
			i = len(block.ShowtimesByDate)
			index[date] = i
			block.ShowtimesByDate = append(block.ShowtimesByDate, internal.DateBucket{Date: date})
		}
		block.ShowtimesByDate[i].Showtimes = append(block.ShowtimesByDate[i].Showtimes, st.canonical())
	}
	return block, true
}
