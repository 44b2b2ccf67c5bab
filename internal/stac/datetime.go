package stac

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateTime is returned when a datetime value cannot be parsed.
var ErrInvalidDateTime = errors.New("invalid datetime format")

const dateLayout = "2006-01-02"

// Item time formats seen in catalog responses.
var itemTimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ExpandDateInterval turns "start/end" into an RFC 3339 interval. Calendar
// dates become the first and last second of the day; full timestamps and
// open ends ("..") are passed through.
func ExpandDateInterval(interval string) (string, error) {
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return "", nil
	}

	parts := strings.Split(interval, "/")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: interval must be 'start/end', got %q", ErrInvalidDateTime, interval)
	}

	start, err := expandBound(parts[0], false)
	if err != nil {
		return "", err
	}
	end, err := expandBound(parts[1], true)
	if err != nil {
		return "", err
	}

	return start + "/" + end, nil
}

func expandBound(s string, end bool) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == ".." {
		return "..", nil
	}

	if d, err := time.Parse(dateLayout, s); err == nil {
		if end {
			d = d.Add(24*time.Hour - time.Second)
		}
		return d.UTC().Format(time.RFC3339), nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q is neither a date nor an RFC 3339 timestamp", ErrInvalidDateTime, s)
	}
	return t.UTC().Format(time.RFC3339), nil
}

// ParseTime parses a catalog timestamp and returns it in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty time string", ErrInvalidDateTime)
	}

	var lastErr error
	for _, format := range itemTimeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDateTime, s, lastErr)
}

// ItemTime returns the acquisition time of an item: "datetime", falling back
// to "start_datetime" for items that carry a range.
func ItemTime(item *Item) (time.Time, error) {
	if item == nil {
		return time.Time{}, fmt.Errorf("%w: item is nil", ErrInvalidDateTime)
	}

	for _, key := range []string{"datetime", "start_datetime"} {
		switch v := item.Properties[key].(type) {
		case string:
			return ParseTime(v)
		case time.Time:
			return v.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: item %q has no datetime", ErrInvalidDateTime, item.Id)
}
