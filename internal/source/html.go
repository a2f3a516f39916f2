package source

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/futuresdesk/newsradar/internal/event"
)

// parseCalendarHTML extracts calendar rows from the feed's HTML markup.
// Rows are grouped under day-header rows; the current day's date text is
// carried forward onto each event row. Malformed rows are skipped
// individually rather than aborting the batch.
func parseCalendarHTML(body []byte, currency string, now time.Time) ([]event.RawEvent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	rows := doc.Find("tr.calendar__row")
	if rows.Length() == 0 {
		return nil, errors.New("no calendar rows in payload")
	}

	var events []event.RawEvent
	var dateText string
	seq := 0

	rows.Each(func(_ int, row *goquery.Selection) {
		// Day-header rows carry the date for themselves and every row
		// until the next header. They can also hold the day's first event.
		if row.HasClass("calendar__row--new-day") {
			if d := strings.TrimSpace(row.Find(".date").Text()); d != "" {
				dateText = normalizeDayHeader(d, now)
			}
		}

		cur := strings.TrimSpace(row.Find(".calendar__currency").Text())
		if !strings.EqualFold(cur, currency) {
			return
		}

		impactClass, _ := row.Find(".calendar__impact span").Attr("class")
		impact, ok := impactFromClass(impactClass)
		if !ok {
			return
		}

		title := strings.TrimSpace(row.Find(".calendar__event-title").Text())
		if title == "" {
			// Feed noise (ads, spacer rows), not an error.
			return
		}

		seq++
		id, found := row.Attr("data-event-id")
		if !found {
			id, _ = row.Attr("data-eventid")
		}
		if id == "" {
			id = synthesizeID(title, dateText, seq)
		}

		events = append(events, event.RawEvent{
			SourceID: id,
			Title:    title,
			Currency: strings.ToUpper(cur),
			Impact:   impact,
			DateText: dateText,
			TimeText: strings.TrimSpace(row.Find(".calendar__time").Text()),
			Forecast: strings.TrimSpace(row.Find(".calendar__forecast").Text()),
			Previous: strings.TrimSpace(row.Find(".calendar__previous").Text()),
		})
	})

	return events, nil
}

// impactFromClass maps the impact icon's class list onto the retained
// tiers. Low/none icons drop the record here, at ingestion.
func impactFromClass(class string) (event.Impact, bool) {
	class = strings.ToLower(class)
	switch {
	case strings.Contains(class, "high"):
		return event.ImpactHigh, true
	case strings.Contains(class, "medium"):
		return event.ImpactMedium, true
	}
	return "", false
}

// normalizeDayHeader converts a day-header label ("Sun Jan 2") into the
// numeric month-day-year form the time normalizer expects. The year comes
// from the reference time since headers omit it. Unrecognized text passes
// through and resolves to the unknown-time sentinel downstream.
func normalizeDayHeader(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("01-02-2006", s); err == nil {
		return s
	}
	for _, layout := range []string{"Mon Jan 2", "Jan 2"} {
		if d, err := time.Parse(layout, s); err == nil {
			return time.Date(now.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Format("01-02-2006")
		}
	}
	return s
}
