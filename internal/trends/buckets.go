// Package trends splits a date range into contiguous reporting buckets and
// collects per-bucket metrics for profitability charts.
package trends

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Granularity is the bucket period.
type Granularity string

const (
	GranularityAuto  Granularity = "auto"
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Ranges up to two weeks are charted per day so a ten day report still
// shows every day.
const (
	dailyLimitDays  = 14
	weeklyLimitDays = 45
)

var (
	// ErrInvalidRange is returned when endDate precedes startDate.
	ErrInvalidRange = errors.New("trends: end date before start date")
	// ErrUnknownGranularity is returned for unsupported granularity names.
	ErrUnknownGranularity = errors.New("trends: unknown granularity")
)

// ParseGranularity normalizes a granularity hint, defaulting to auto.
func ParseGranularity(value string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(value))); g {
	case "", GranularityAuto:
		return GranularityAuto, nil
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, value)
}

// Bucket is a half-open [Start, End) reporting period.
type Bucket struct {
	Label       string
	Granularity Granularity
	Start       time.Time
	End         time.Time
}

// Contains reports whether t falls inside the bucket.
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// Choose applies the automatic granularity rule to a range of days calendar days.
func Choose(days int) Granularity {
	switch {
	case days <= dailyLimitDays:
		return GranularityDay
	case days <= weeklyLimitDays:
		return GranularityWeek
	default:
		return GranularityMonth
	}
}

// Buckets covers the calendar days startDate through endDate inclusive. The
// first bucket starts at local midnight of startDate and the last ends at the
// midnight following endDate. Week buckets are Monday aligned and month
// buckets follow calendar months; both are clamped to the range.
func Buckets(startDate, endDate time.Time, hint Granularity, loc *time.Location) ([]Bucket, error) {
	if loc == nil {
		loc = startDate.Location()
	}
	first := midnight(startDate, loc)
	limit := midnight(endDate, loc).AddDate(0, 0, 1)
	if !limit.After(first) {
		return nil, ErrInvalidRange
	}

	granularity := hint
	if granularity == "" || granularity == GranularityAuto {
		granularity = Choose(dayCount(first, limit))
	}

	var next func(time.Time) time.Time
	switch granularity {
	case GranularityDay:
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case GranularityWeek:
		next = func(t time.Time) time.Time {
			offset := (int(t.Weekday()) + 6) % 7
			return t.AddDate(0, 0, 7-offset)
		}
	case GranularityMonth:
		next = func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, granularity)
	}

	var buckets []Bucket
	for start := first; start.Before(limit); {
		end := next(start)
		if end.After(limit) {
			end = limit
		}
		buckets = append(buckets, Bucket{
			Label:       label(granularity, start),
			Granularity: granularity,
			Start:       start,
			End:         end,
		})
		start = end
	}
	return buckets, nil
}

func midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func dayCount(first, limit time.Time) int {
	n := 0
	for d := first; d.Before(limit); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

func label(g Granularity, start time.Time) string {
	switch g {
	case GranularityWeek:
		return "Week of " + start.Format("2 Jan")
	case GranularityMonth:
		return start.Format("Jan 2006")
	default:
		return start.Format("Mon 2 Jan")
	}
}
