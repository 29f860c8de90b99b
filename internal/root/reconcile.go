package root

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/enrichment"
	"github.com/drewfead/marquee/internal/feeds"
	"github.com/drewfead/marquee/internal/schedule"
	"github.com/drewfead/marquee/internal/services"
	"github.com/urfave/cli/v3"
)

func nowFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "now",
		Usage: "wall clock as RFC3339 (default: current time)",
	}
}

func (a *app) reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "load the feeds and list cinemas with showtimes for one day",
		Flags: []cli.Flag{
			nowFlag(),
			&cli.IntFlag{
				Name:  "date",
				Usage: "date tab: 0 today, 1 tomorrow, 2 the day after",
			},
			&cli.StringFlag{
				Name:  "origin",
				Usage: "sort by distance from lat,lng",
			},
			&cli.StringFlag{
				Name:  "query",
				Usage: "only cinemas whose name contains this text",
			},
			&cli.StringSliceFlag{
				Name:  "cinema",
				Usage: "only these cinema ids (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "list every cinema instead of the nearest few",
			},
			&cli.StringFlag{
				Name:  "movie",
				Usage: "fetch showtimes for this movie id only",
			},
			&cli.StringFlag{
				Name:    "feed-dir",
				Usage:   "read box-office.json, showtimes.json and cinemas.json from this directory",
				Sources: cli.EnvVars("MARQUEE_FEED_DIR"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "backend API root",
				Sources: cli.EnvVars("MARQUEE_FEED_BASE_URL"),
			},
			&cli.BoolFlag{
				Name:  "no-posters",
				Usage: "skip poster lookups for box-office entries",
			},
		},
		Action: a.runReconcile,
	}
}

func (a *app) runReconcile(ctx context.Context, cmd *cli.Command) error {
	now, err := a.now(cmd)
	if err != nil {
		return err
	}
	active := int(cmd.Int("date"))
	if active < 0 || active >= schedule.TabCount {
		return fmt.Errorf("invalid --date %d (valid: 0 today, 1 tomorrow, 2 the day after)", active)
	}
	origin, err := parseOrigin(cmd.String("origin"))
	if err != nil {
		return err
	}

	tabs := schedule.NewDateTabs(now)
	rcfg := a.cfg.Reconcile()
	registry := a.registry(cmd.String("feed-dir"), cmd.String("base-url"))
	feedReq := internal.FeedRequest{MovieID: cmd.String("movie"), Date: tabs[active].Date}
	snap, err := feeds.LoadSnapshot(ctx, registry, feedReq, rcfg.Fallback)
	if err != nil {
		return fmt.Errorf("failed to load feeds: %w", err)
	}

	if snap.BoxOffice != nil && !cmd.Bool("no-posters") {
		snap.BoxOffice, err = enrichment.Enrich(ctx, snap.BoxOffice, a.posterProviders()...)
		if err != nil {
			return fmt.Errorf("failed to enrich box office: %w", err)
		}
	}

	reconciler := services.NewReconciler(
		services.WithConfig(rcfg),
		services.WithRanker(a.cfg.Ranker()),
		services.WithLocation(a.loc),
		services.WithListLimit(a.cfg.Display.ListLimit),
	)
	view := reconciler.Reconcile(snap, services.Request{
		Now:               now,
		ActiveDate:        active,
		Origin:            origin,
		CinemaQuery:       cmd.String("query"),
		SelectedCinemaIDs: cmd.StringSlice("cinema"),
		ShowAll:           cmd.Bool("all"),
	})
	return emit(cmd, view, func(w io.Writer) error {
		_, err := io.WriteString(w, renderView(view))
		return err
	})
}

func parseOrigin(raw string) (*internal.LatLng, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	latStr, lngStr, ok := strings.Cut(raw, ",")
	if !ok {
		return nil, fmt.Errorf("invalid --origin %q (expected lat,lng)", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --origin latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --origin longitude: %w", err)
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("invalid --origin %q: out of range", raw)
	}
	return &internal.LatLng{Lat: lat, Lng: lng}, nil
}

func renderView(view services.View) string {
	var b strings.Builder
	if !view.Ready {
		fmt.Fprintf(&b, "waiting for feeds: %s\n", joinKinds(view.Pending))
		return b.String()
	}

	b.WriteString(tabLine(view.Tabs, view.ActiveDate))
	b.WriteString("\n")

	if len(view.BoxOffice) > 0 {
		rows := make([][]string, 0, len(view.BoxOffice))
		for _, r := range view.BoxOffice {
			rows = append(rows, []string{strconv.Itoa(r.Rank), r.Title, r.TicketsLabel, orDash(r.ReleaseDate)})
		}
		b.WriteString(renderTable("Box office",
			[]string{"#", "Title", "Tickets", "Release"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft}))
	}

	if len(view.Cinemas) == 0 {
		fmt.Fprintf(&b, "no showtimes on %s\n", view.ActiveDate)
	} else {
		var rows [][]string
		for _, c := range view.Cinemas {
			name := c.Name
			if c.Synthetic {
				name += " (unlisted)"
			}
			distance := "-"
			if c.DistanceKm != nil {
				distance = fmt.Sprintf("%.1f km", *c.DistanceKm)
			}
			for i, st := range c.Showtimes {
				row := []string{"", "", "", st.Time, orDash(st.MovieLabel), st.Type, st.Language, st.Price}
				if i == 0 {
					row[0], row[1], row[2] = name, orDash(c.District), distance
				}
				rows = append(rows, row)
			}
		}
		b.WriteString(renderTable("Showtimes "+view.ActiveDate,
			[]string{"Cinema", "District", "Distance", "Time", "Movie", "Type", "Language", "Price"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
	}

	if view.Truncated {
		fmt.Fprintf(&b, "showing %d of %d cinemas; use --all to list every cinema\n", len(view.Cinemas), view.Total)
	} else {
		fmt.Fprintf(&b, "%d cinemas\n", view.Total)
	}

	if view.Movies != nil && len(view.Movies.Unmatched) > 0 {
		rows := make([][]string, 0, len(view.Movies.Unmatched))
		for _, m := range view.Movies.Unmatched {
			rows = append(rows, []string{m.Label, strconv.Itoa(m.Result.Score), m.Result.Reason.String()})
		}
		b.WriteString(renderTable("Not on the box-office list",
			[]string{"Movie", "Best score", "Rule"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft}))
	}
	if len(view.Pending) > 0 {
		fmt.Fprintf(&b, "pending: %s\n", joinKinds(view.Pending))
	}
	return b.String()
}

// tabLine renders the date tabs with the active one in brackets.
func tabLine(tabs []internal.DateTab, active string) string {
	parts := make([]string, len(tabs))
	for i, tab := range tabs {
		if tab.Date == active {
			parts[i] = "[" + tab.Label + "]"
		} else {
			parts[i] = tab.Label
		}
	}
	return strings.Join(parts, "  ")
}

func joinKinds(kinds []internal.FeedKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (a *app) datesCommand() *cli.Command {
	return &cli.Command{
		Name:  "dates",
		Usage: "show the date tabs for today, tomorrow and the day after",
		Flags: []cli.Flag{nowFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			now, err := a.now(cmd)
			if err != nil {
				return err
			}
			tabs := schedule.NewDateTabs(now)
			return emit(cmd, tabs, func(w io.Writer) error {
				rows := make([][]string, len(tabs))
				for i, tab := range tabs {
					rows[i] = []string{strconv.Itoa(i), tab.Label, tab.Date}
				}
				_, err := io.WriteString(w, renderTable("", []string{"--date", "Label", "Date"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft}))
				return err
			})
		},
	}
}
