package http

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var errInvalidTime = errors.New("must be an RFC 3339 timestamp or a YYYY-MM-DD date")

// parseInstant accepts RFC 3339 timestamps, local "YYYY-MM-DDTHH:MM" values and
// bare dates. Values without an offset are read in loc.
func parseInstant(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04", value, loc); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return ts, nil
	}
	return time.Time{}, errInvalidTime
}

func parseOptionalInstant(value string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	ts, err := parseInstant(value, loc)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func parseOptionalInt(values url.Values, key string) (int, bool, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
