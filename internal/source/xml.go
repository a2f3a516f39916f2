package source

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/futuresdesk/newsradar/internal/event"
)

// weeklyEvents mirrors the feed's weekly-calendar XML document. This is a
// bespoke schema, not RSS/Atom, so it gets explicit structs.
type weeklyEvents struct {
	XMLName xml.Name   `xml:"weeklyevents"`
	Events  []xmlEvent `xml:"event"`
}

type xmlEvent struct {
	Title    string `xml:"title"`
	Country  string `xml:"country"`
	Date     string `xml:"date"`
	Time     string `xml:"time"`
	Impact   string `xml:"impact"`
	Forecast string `xml:"forecast"`
	Previous string `xml:"previous"`
}

// parseCalendarXML extracts events from the structured weekly feed,
// applying the same ingestion filters as the HTML path. The XML variant
// carries no event ids, so every id is synthesized.
func parseCalendarXML(body []byte, currency string) ([]event.RawEvent, error) {
	var doc weeklyEvents
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing weekly calendar XML: %w", err)
	}

	var events []event.RawEvent
	seq := 0
	for _, e := range doc.Events {
		if !strings.EqualFold(strings.TrimSpace(e.Country), currency) {
			continue
		}
		impact, ok := event.ParseImpact(e.Impact)
		if !ok {
			continue
		}
		title := strings.TrimSpace(e.Title)
		if title == "" {
			continue
		}

		seq++
		events = append(events, event.RawEvent{
			SourceID: synthesizeID(title, strings.TrimSpace(e.Date), seq),
			Title:    title,
			Currency: strings.ToUpper(strings.TrimSpace(e.Country)),
			Impact:   impact,
			DateText: strings.TrimSpace(e.Date),
			TimeText: strings.TrimSpace(e.Time),
			Forecast: strings.TrimSpace(e.Forecast),
			Previous: strings.TrimSpace(e.Previous),
		})
	}

	return events, nil
}
