package event

import (
	"fmt"
	"strings"
	"time"
)

// SourceZone is the calendar feed's home timezone: the US Eastern standard
// offset. Wall-clock strings from the feed are interpreted here and only
// then converted to UTC, so ingestion is correct regardless of the host's
// local zone.
var SourceZone = time.FixedZone("ET", -5*60*60)

// TimeParseError reports date/time text that could not be resolved into an
// instant. The caller maps it to the TimeUnknown sentinel and keeps the
// record.
type TimeParseError struct {
	DateText string
	TimeText string
	Err      error
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("unparseable event schedule %q %q: %v", e.DateText, e.TimeText, e.Err)
}

func (e *TimeParseError) Unwrap() error { return e.Err }

// allDayMarkers are time-column placeholders the feed uses for events
// without a scheduled clock time. They resolve to source-local midnight.
var allDayMarkers = map[string]bool{
	"":          true,
	"all day":   true,
	"tentative": true,
	"day 1":     true,
	"day 2":     true,
	"day 3":     true,
}

// ResolveEventTime resolves a source-local date (month-day-year numeric
// form) and optional 12-hour clock time into a UTC RFC3339 timestamp.
// A missing or placeholder time resolves to midnight of that date. It never
// substitutes the current wall clock for unparseable input; that is a
// TimeParseError for the caller to map to TimeUnknown.
func ResolveEventTime(dateText, timeText string) (string, error) {
	day, err := time.ParseInLocation("01-02-2006", strings.TrimSpace(dateText), SourceZone)
	if err != nil {
		return "", &TimeParseError{DateText: dateText, TimeText: timeText, Err: err}
	}

	tt := strings.ToLower(strings.TrimSpace(timeText))
	if allDayMarkers[tt] {
		return day.UTC().Format(time.RFC3339), nil
	}

	clock, err := time.Parse("3:04pm", tt)
	if err != nil {
		return "", &TimeParseError{DateText: dateText, TimeText: timeText, Err: err}
	}

	t := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, SourceZone)
	return t.UTC().Format(time.RFC3339), nil
}
