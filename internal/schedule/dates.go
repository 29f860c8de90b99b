package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/drewfead/marquee/internal"
	"golang.org/x/text/width"
)

// DateLayout is the canonical calendar date format used as bucket key.
const DateLayout = "2006-01-02"

// TabCount is the number of date tabs: today, tomorrow, the day after.
const TabCount = 3

var relativeLabels = map[string]int{
	"今天": 0,
	"今日": 0,
	"明天": 1,
	"明日": 1,
	"後天": 2,
	"后天": 2,
}

var tabPrefixes = [TabCount]string{"今天", "明天", "後天"}

// Today returns midnight of now's civil date in now's location.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// AddDays returns the civil date days after now's date, formatted with DateLayout.
func AddDays(now time.Time, days int) string {
	return Today(now).AddDate(0, 0, days).Format(DateLayout)
}

// ResolveDate turns a raw bucket date into YYYY-MM-DD. ISO dates pass through (timestamps are cut
// at the time part). Relative labels resolve against now, optionally followed by an "(M/D)"
// annotation which is ignored. Anything else reports false.
func ResolveDate(raw string, now time.Time) (string, bool) {
	s := strings.TrimSpace(width.Fold.String(raw))
	if s == "" {
		return "", false
	}
	if date, ok := isoDate(s); ok {
		return date, true
	}
	label := s
	if i := strings.IndexByte(label, '('); i >= 0 {
		label = strings.TrimSpace(label[:i])
	}
	if days, ok := relativeLabels[label]; ok {
		return AddDays(now, days), true
	}
	return "", false
}

func isoDate(s string) (string, bool) {
	if len(s) < len(DateLayout) {
		return "", false
	}
	head, rest := s[:len(DateLayout)], s[len(DateLayout):]
	if rest != "" && rest[0] != 'T' && rest[0] != ' ' {
		return "", false
	}
	if _, err := time.Parse(DateLayout, head); err != nil {
		return "", false
	}
	return head, true
}

// NewDateTabs returns today, tomorrow and the day after, labeled relative to now.
func NewDateTabs(now time.Time) []internal.DateTab {
	tabs := make([]internal.DateTab, TabCount)
	for i := range tabs {
		date := AddDays(now, i)
		tabs[i] = internal.DateTab{Label: DateLabel(date, now), Date: date}
	}
	return tabs
}

// DateLabel is "今天 (M/D)", "明天 (M/D)" or "後天 (M/D)" for the three tab dates and "M/D" for
// any other date. Strings that are not YYYY-MM-DD come back unchanged.
func DateLabel(date string, now time.Time) string {
	t, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return date
	}
	md := fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
	for i, prefix := range tabPrefixes {
		if date == AddDays(now, i) {
			return prefix + " (" + md + ")"
		}
	}
	return md
}
