package schedule

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/drewfead/marquee/internal"
	"golang.org/x/text/width"
)

var (
	parenthetical = regexp.MustCompile(`\(([^()]*)\)`)
	clockTime     = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
)

// Late screenings are listed past midnight as 24:xx..29:xx.
const maxListedHour = 29

// Groups maps a resolved YYYY-MM-DD date to its showtimes in feed order.
type Groups map[string][]internal.Showtime

// Dates returns the group keys in calendar order.
func (g Groups) Dates() []string {
	dates := make([]string, 0, len(g))
	for d := range g {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	return dates
}

// GroupByDate buckets a block's showtimes by resolved date. Buckets whose date cannot be resolved
// are skipped, and so are showtimes whose time cannot be parsed. Buckets resolving to the same
// date are concatenated in feed order.
func GroupByDate(block internal.TheaterBlock, now time.Time) Groups {
	groups := make(Groups, len(block.ShowtimesByDate))
	for _, bucket := range block.ShowtimesByDate {
		date, ok := ResolveDate(bucket.Date, now)
		if !ok {
			slog.Debug("schedule: skipped bucket with invalid date",
				"theater", block.TheaterID, "date", bucket.Date)
			continue
		}
		for _, st := range bucket.Showtimes {
			clean, ok := normalizeShowtime(st)
			if !ok {
				slog.Debug("schedule: skipped showtime with invalid time",
					"theater", block.TheaterID, "date", date, "time", st.Time)
				continue
			}
			groups[date] = append(groups[date], clean)
		}
		if _, seen := groups[date]; !seen {
			groups[date] = []internal.Showtime{}
		}
	}
	return groups
}

// SelectDate returns the showtimes for the active tab. An out of range index or a date without a
// bucket yields an empty list.
func SelectDate(groups Groups, tabs []internal.DateTab, active int) []internal.Showtime {
	if active < 0 || active >= len(tabs) {
		return []internal.Showtime{}
	}
	if sts, ok := groups[tabs[active].Date]; ok {
		return sts
	}
	return []internal.Showtime{}
}

func normalizeShowtime(st internal.Showtime) (internal.Showtime, bool) {
	hhmm, annotations, ok := ParseTime(st.Time)
	if !ok {
		return internal.Showtime{}, false
	}
	st.Time = hhmm
	attrs := slices.Clone(st.Attributes)
	for _, a := range annotations {
		if !slices.Contains(attrs, a) {
			attrs = append(attrs, a)
		}
	}
	st.Attributes = attrs
	return st, true
}

// ParseTime reads "H:MM", "HH:MM" or "HH:MM:SS" with any number of parenthetical annotations
// ("13:00 (3D)", "21:30（IMAX）"). It returns the time as HH:MM and the annotations in order.
func ParseTime(raw string) (string, []string, bool) {
	s := width.Fold.String(raw)
	var annotations []string
	for _, m := range parenthetical.FindAllStringSubmatch(s, -1) {
		if a := strings.TrimSpace(m[1]); a != "" && !slices.Contains(annotations, a) {
			annotations = append(annotations, a)
		}
	}
	s = strings.TrimSpace(parenthetical.ReplaceAllString(s, " "))
	m := clockTime.FindStringSubmatch(s)
	if m == nil {
		return "", nil, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > maxListedHour || minute > 59 {
		return "", nil, false
	}
	if m[3] != "" {
		if sec, _ := strconv.Atoi(m[3]); sec > 59 {
			return "", nil, false
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), annotations, true
}
