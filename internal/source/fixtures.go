package source

import (
	"time"

	"github.com/futuresdesk/newsradar/internal/event"
)

// Fixtures returns the built-in fallback event set, generated relative to
// the current date. It is the final backstop of the fallback chain: when
// the feed and the cache both fail, downstream consumers still receive a
// non-empty, schema-valid list. Ids carry a "fixture-" prefix so synthetic
// data stays identifiable.
func Fixtures() []event.RawEvent {
	return FixturesAt(time.Now())
}

// FixturesAt generates the fixture set anchored at the given instant.
// Events span three days and several sessions, mirroring a typical
// high-impact US calendar week.
func FixturesAt(now time.Time) []event.RawEvent {
	day := func(offset int) string {
		return now.In(event.SourceZone).AddDate(0, 0, offset).Format("01-02-2006")
	}

	return []event.RawEvent{
		{SourceID: "fixture-cpi-1", Title: "Core CPI m/m", Currency: "USD", Impact: event.ImpactHigh,
			DateText: day(0), TimeText: "8:30am", Forecast: "0.3%", Previous: "0.2%"},
		{SourceID: "fixture-retail-1", Title: "Retail Sales m/m", Currency: "USD", Impact: event.ImpactHigh,
			DateText: day(0), TimeText: "8:30am", Forecast: "0.5%", Previous: "0.4%"},
		{SourceID: "fixture-jobless-1", Title: "Unemployment Claims", Currency: "USD", Impact: event.ImpactHigh,
			DateText: day(0), TimeText: "8:30am", Forecast: "220K", Previous: "215K"},
		{SourceID: "fixture-pmi-1", Title: "Services PMI", Currency: "USD", Impact: event.ImpactMedium,
			DateText: day(0), TimeText: "9:45am", Forecast: "52.5", Previous: "52.1"},
		{SourceID: "fixture-housing-1", Title: "Building Permits", Currency: "USD", Impact: event.ImpactMedium,
			DateText: day(0), TimeText: "10:00am", Forecast: "1.48M", Previous: "1.45M"},
		{SourceID: "fixture-gdp-1", Title: "GDP q/q", Currency: "USD", Impact: event.ImpactHigh,
			DateText: day(1), TimeText: "8:30am", Forecast: "2.8%", Previous: "2.6%"},
		{SourceID: "fixture-fomc-1", Title: "FOMC Meeting Minutes", Currency: "USD", Impact: event.ImpactHigh,
			DateText: day(1), TimeText: "2:00pm"},
		{SourceID: "fixture-ppi-1", Title: "PPI m/m", Currency: "USD", Impact: event.ImpactHigh,
			DateText: day(1), TimeText: "8:30am", Forecast: "0.2%", Previous: "0.3%"},
		{SourceID: "fixture-consumer-1", Title: "Consumer Sentiment", Currency: "USD", Impact: event.ImpactMedium,
			DateText: day(1), TimeText: "10:00am", Forecast: "79.5", Previous: "78.8"},
		{SourceID: "fixture-nfp-1", Title: "Non-Farm Employment Change", Currency: "USD", Impact: event.ImpactHigh,
			DateText: day(2), TimeText: "8:30am", Forecast: "185K", Previous: "199K"},
		{SourceID: "fixture-unemployment-1", Title: "Unemployment Rate", Currency: "USD", Impact: event.ImpactHigh,
			DateText: day(2), TimeText: "8:30am", Forecast: "4.1%", Previous: "4.0%"},
		{SourceID: "fixture-wages-1", Title: "Average Hourly Earnings m/m", Currency: "USD", Impact: event.ImpactMedium,
			DateText: day(2), TimeText: "8:30am", Forecast: "0.3%", Previous: "0.4%"},
	}
}
