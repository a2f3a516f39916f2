package event

import (
	"sort"
	"strings"
)

// Impact is the source-assigned importance tier of a release. Anything
// below medium is discarded at ingestion and never reaches this type.
type Impact string

const (
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// ParseImpact maps a source impact label onto the retained tiers.
// Low/none/holiday labels report ok=false and the record is dropped.
func ParseImpact(s string) (Impact, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "medium":
		return ImpactMedium, true
	case "high":
		return ImpactHigh, true
	}
	return "", false
}

// Bias is the directional market lean assigned by the enrichment stage.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// ParseBias normalizes free-form backend output onto the Bias enum.
func ParseBias(s string) (Bias, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish":
		return BiasBullish, true
	case "bearish":
		return BiasBearish, true
	case "neutral":
		return BiasNeutral, true
	}
	return BiasNeutral, false
}

// Volatility is the expected movement magnitude around a release.
type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityMedium Volatility = "medium"
	VolatilityHigh   Volatility = "high"
)

// ParseVolatility normalizes free-form backend output onto the Volatility enum.
func ParseVolatility(s string) (Volatility, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return VolatilityLow, true
	case "medium":
		return VolatilityMedium, true
	case "high":
		return VolatilityHigh, true
	}
	return VolatilityMedium, false
}

// Session is a major trading session label.
type Session string

const (
	SessionAsia    Session = "Asia"
	SessionLondon  Session = "London"
	SessionNewYork Session = "New York"
)

// RawEvent is a calendar record as ingested, pre-enrichment. DateText and
// TimeText are the source-local raw strings; resolution to an absolute
// instant happens in ResolveEventTime.
type RawEvent struct {
	SourceID string
	Title    string
	Currency string
	Impact   Impact
	DateText string
	TimeText string
	Forecast string
	Previous string
}

// TimeUnknown is the sentinel EventTimeUTC for records whose schedule
// could not be resolved. Such records are kept, never silently timestamped
// with the current wall clock.
const TimeUnknown = "unknown"

// NormalizedEvent is a RawEvent with its schedule resolved to a UTC
// RFC3339 instant, or TimeUnknown.
type NormalizedEvent struct {
	RawEvent
	EventTimeUTC string
}

// EnrichedEvent is the final unit exposed to consumers. Every AI field is
// always populated; the enrichment stage substitutes a complete fallback
// record rather than omitting fields.
type EnrichedEvent struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Impact       Impact     `json:"impact"`
	EventTimeUTC string     `json:"eventTimeUTC"`
	Forecast     string     `json:"forecast,omitempty"`
	Previous     string     `json:"previous,omitempty"`
	AIBias       Bias       `json:"aiBias"`
	AIVolatility Volatility `json:"aiVolatility"`
	AIComment    string     `json:"aiComment"`
	AIEventScore int        `json:"aiEventScore"`
	AIConfidence int        `json:"aiConfidence"`
	CreatedAt    string     `json:"createdAt"`
}

// Cohort groups events sharing an identical scheduled instant. The
// enrichment stage processes a cohort as one atomic unit so simultaneous
// events receive a single coherent verdict. Cohorts are transient and
// never persisted.
type Cohort struct {
	TimeUTC string
	Events  []NormalizedEvent
}

// BuildCohorts groups events by exact EventTimeUTC equality, preserving
// first-seen order of both cohorts and members.
func BuildCohorts(events []NormalizedEvent) []Cohort {
	var cohorts []Cohort
	index := make(map[string]int)
	for _, ev := range events {
		i, ok := index[ev.EventTimeUTC]
		if !ok {
			i = len(cohorts)
			index[ev.EventTimeUTC] = i
			cohorts = append(cohorts, Cohort{TimeUTC: ev.EventTimeUTC})
		}
		cohorts[i].Events = append(cohorts[i].Events, ev)
	}
	return cohorts
}

// SortByTime orders events ascending by EventTimeUTC with stable ties.
// RFC3339 UTC strings sort correctly as plain strings, and the TimeUnknown
// sentinel sorts after every timestamp.
func SortByTime(events []EnrichedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventTimeUTC < events[j].EventTimeUTC
	})
}
