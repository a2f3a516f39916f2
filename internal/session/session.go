// Package session maps absolute instants onto trading-session labels and
// the kill-zone/overlap descriptors used as enrichment context.
package session

import (
	"strings"
	"time"

	"github.com/futuresdesk/newsradar/internal/event"
)

// Classification describes where an instant falls in the trading day.
// It is pure contextual input for the enrichment stage.
type Classification struct {
	Session     event.Session
	IsKillZone  bool
	IsOverlap   bool
	Description string
}

var nyLocation = loadNY()

func loadNY() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Without tzdata the standard offset is the best available civil time.
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// NYLocation returns the New York civil-time location used for
// classification, daylight saving honored.
func NYLocation() *time.Location { return nyLocation }

// band is a half-open [start, end) interval in minutes since NY midnight.
// Bands with start > end wrap around midnight.
type band struct {
	start, end int
}

func (b band) contains(m int) bool {
	if b.start > b.end {
		return m >= b.start || m < b.end
	}
	return m >= b.start && m < b.end
}

func minutes(h, m int) int { return h*60 + m }

var sessionBands = []struct {
	session event.Session
	band    band
}{
	{event.SessionAsia, band{minutes(20, 0), minutes(5, 0)}},
	{event.SessionLondon, band{minutes(3, 0), minutes(12, 0)}},
	{event.SessionNewYork, band{minutes(8, 0), minutes(17, 0)}},
}

var killZones = []struct {
	label string
	band  band
}{
	{"London open kill zone", band{minutes(2, 0), minutes(5, 0)}},
	{"NY open kill zone", band{minutes(8, 0), minutes(11, 0)}},
	{"London close kill zone", band{minutes(10, 0), minutes(12, 0)}},
}

// overlapBand is the London/NY overlap, opening at the 09:30 NYSE cash open.
var overlapBand = band{minutes(9, 30), minutes(12, 0)}

// Classify reports the trading session for an instant, whether it falls in
// a kill zone or the London/NY overlap, and a composite description.
// Session bands are checked in fixed Asia -> London -> New York order,
// first match wins; the 17:00-20:00 gap defaults to New York.
func Classify(t time.Time) Classification {
	ny := t.In(nyLocation)
	m := minutes(ny.Hour(), ny.Minute())

	c := Classification{Session: event.SessionNewYork}
	for _, sb := range sessionBands {
		if sb.band.contains(m) {
			c.Session = sb.session
			break
		}
	}

	parts := []string{string(c.Session) + " session"}
	for _, kz := range killZones {
		if kz.band.contains(m) {
			c.IsKillZone = true
			parts = append(parts, kz.label)
		}
	}
	if overlapBand.contains(m) {
		c.IsOverlap = true
		parts = append(parts, "London/NY overlap")
	}

	c.Description = strings.Join(parts, ", ")
	return c
}
