package services

import (
	"log/slog"
	"slices"
	"time"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/adapter"
	"github.com/drewfead/marquee/internal/geo"
	"github.com/drewfead/marquee/internal/normalize"
	"github.com/drewfead/marquee/internal/reconcile"
	"github.com/drewfead/marquee/internal/schedule"
)

const defaultListLimit = 9

// Snapshot is the raw material for one render. A nil feed is still loading; a loaded feed is a
// non-nil slice, possibly empty.
type Snapshot struct {
	BoxOffice []internal.BoxOfficeEntry
	Showtimes []internal.TheaterBlock
	Cinemas   []internal.Cinema
}

// Pending lists the feeds that have not arrived yet.
func (s Snapshot) Pending() []internal.FeedKind {
	var pending []internal.FeedKind
	if s.BoxOffice == nil {
		pending = append(pending, internal.FeedBoxOffice)
	}
	if s.Showtimes == nil {
		pending = append(pending, internal.FeedShowtimes)
	}
	if s.Cinemas == nil {
		pending = append(pending, internal.FeedCinemas)
	}
	return pending
}

// Request carries the user's view state. Now is the request's wall clock; relative date labels
// resolve against it.
type Request struct {
	Now               time.Time
	ActiveDate        int
	Origin            *internal.LatLng
	CinemaQuery       string
	SelectedCinemaIDs []string
	ShowAll           bool
}

type BoxOfficeRow struct {
	Rank         int    `json:"rank"`
	MovieID      string `json:"movie_id"`
	Title        string `json:"title"`
	FullTitle    string `json:"full_title"`
	Tickets      int64  `json:"tickets"`
	TicketsLabel string `json:"tickets_label"`
	ReleaseDate  string `json:"release_date,omitempty"`
	PosterURL    string `json:"poster_url,omitempty"`
}

type CinemaView struct {
	internal.Cinema
	DistanceKm *float64             `json:"distance_km,omitempty"`
	Showtimes  []schedule.Formatted `json:"showtimes"`
}

// View is everything the presentation layer needs for one render.
type View struct {
	Ready      bool                   `json:"ready"`
	Pending    []internal.FeedKind    `json:"pending,omitempty"`
	Tabs       []internal.DateTab     `json:"tabs,omitempty"`
	ActiveDate string                 `json:"active_date,omitempty"`
	BoxOffice  []BoxOfficeRow         `json:"box_office,omitempty"`
	Movies     *reconcile.MovieReport `json:"movies,omitempty"`
	Cinemas    []CinemaView           `json:"cinemas"`
	// Total is the number of cinemas before list truncation.
	Total     int              `json:"total"`
	Truncated bool             `json:"truncated"`
	Center    internal.LatLng  `json:"center"`
	Viewport  geo.Box          `json:"viewport"`
	Links     []reconcile.Link `json:"links,omitempty"`
}

// Reconciler orchestrates normalization, matching, grouping and ranking for one snapshot.
type Reconciler struct {
	config    reconcile.Config
	ranker    *geo.Ranker
	location  *time.Location
	listLimit int
}

type ReconcilerOption func(*Reconciler)

func WithConfig(cfg reconcile.Config) ReconcilerOption {
	return func(r *Reconciler) {
		r.config = cfg
	}
}

func WithRanker(ranker *geo.Ranker) ReconcilerOption {
	return func(r *Reconciler) {
		if ranker != nil {
			r.ranker = ranker
		}
	}
}

// WithLocation sets the time zone civil dates are computed in.
func WithLocation(loc *time.Location) ReconcilerOption {
	return func(r *Reconciler) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithListLimit caps the cinema list when no query is set and ShowAll is off.
func WithListLimit(n int) ReconcilerOption {
	return func(r *Reconciler) {
		r.listLimit = n
	}
}

func NewReconciler(opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		config:    reconcile.DefaultConfig(),
		ranker:    geo.NewRanker(),
		location:  time.Local,
		listLimit: defaultListLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.config.Normalizer == nil {
		r.config.Normalizer = normalize.Default()
	}
	return r
}

// Reconcile builds the view. Until both the showtimes and the cinema directory are loaded it
// returns a view with Ready unset and the missing feeds in Pending. The box office is optional:
// without it the movie report is left out and the feed stays listed as pending.
func (r *Reconciler) Reconcile(snap Snapshot, req Request) View {
	pending := snap.Pending()
	if snap.Showtimes == nil || snap.Cinemas == nil {
		slog.Debug("services: not ready", "pending", pending)
		return View{Pending: pending}
	}

	now := req.Now.In(r.location)
	tabs := schedule.NewDateTabs(now)
	view := View{
		Ready:   true,
		Pending: pending,
		Tabs:    tabs,
		Cinemas: []CinemaView{},
	}
	if req.ActiveDate >= 0 && req.ActiveDate < len(tabs) {
		view.ActiveDate = tabs[req.ActiveDate].Date
	}

	blocks := make([]internal.TheaterBlock, 0, len(snap.Showtimes))
	for _, b := range snap.Showtimes {
		if b.HasShowtimes() {
			blocks = append(blocks, b)
		}
	}

	if snap.BoxOffice != nil {
		view.BoxOffice = boxOfficeRows(snap.BoxOffice)
		report := reconcile.Movies(reconcile.Showtimes(blocks), snap.BoxOffice, r.config)
		view.Movies = &report
	}

	theaters := reconcile.Theaters(blocks, snap.Cinemas, r.config)
	view.Links = theaters.Links

	selected := make(map[string][]internal.Showtime, len(theaters.Cinemas))
	var candidates []internal.Cinema
	for _, c := range theaters.Cinemas {
		groups := schedule.GroupByDate(theaters.Blocks[c.ID], now)
		sts := schedule.SelectDate(groups, tabs, req.ActiveDate)
		if len(sts) == 0 {
			continue
		}
		selected[c.ID] = sts
		candidates = append(candidates, c)
	}

	candidates = reconcile.FilterByQuery(candidates, theaters.RawNames(), req.CinemaQuery, r.config.Normalizer)
	if len(req.SelectedCinemaIDs) > 0 {
		candidates = slices.DeleteFunc(candidates, func(c internal.Cinema) bool {
			return !slices.Contains(req.SelectedCinemaIDs, c.ID)
		})
	}
	candidates = r.ranker.Sort(candidates, req.Origin)

	view.Total = len(candidates)
	if req.CinemaQuery == "" && !req.ShowAll && r.listLimit > 0 && len(candidates) > r.listLimit {
		candidates = candidates[:r.listLimit]
		view.Truncated = true
	}

	for _, c := range candidates {
		cv := CinemaView{
			Cinema:    c,
			Showtimes: schedule.FormatAll(c, view.ActiveDate, selected[c.ID]),
		}
		if req.Origin != nil {
			km := geo.DistanceKm(req.Origin.Lat, req.Origin.Lng, c.Latitude, c.Longitude)
			cv.DistanceKm = &km
		}
		view.Cinemas = append(view.Cinemas, cv)
	}
	view.Center = r.ranker.Center(candidates)
	view.Viewport = r.ranker.Viewport(candidates, req.Origin)

	slog.Debug("services: reconciled",
		"date", view.ActiveDate,
		"blocks", len(blocks),
		"cinemas", len(view.Cinemas),
		"total", view.Total,
		"truncated", view.Truncated,
	)
	return view
}

func boxOfficeRows(entries []internal.BoxOfficeEntry) []BoxOfficeRow {
	rows := make([]BoxOfficeRow, len(entries))
	for i, e := range entries {
		rows[i] = BoxOfficeRow{
			Rank:         e.Rank,
			MovieID:      e.Movie.ID,
			Title:        e.Movie.DisplayTitle(),
			FullTitle:    e.Movie.FullTitle,
			Tickets:      e.Tickets,
			TicketsLabel: adapter.FormatTickets(e.Tickets),
			ReleaseDate:  e.Movie.ReleaseDate,
			PosterURL:    e.PosterURL,
		}
	}
	return rows
}
