package enrich

import (
	"context"
	"strings"
	"testing"

	"github.com/futuresdesk/newsradar/internal/event"
	"github.com/futuresdesk/newsradar/internal/session"
)

func normalized(title, timeUTC, forecast, previous string) event.NormalizedEvent {
	return event.NormalizedEvent{
		RawEvent: event.RawEvent{
			SourceID: "t-" + strings.ToLower(strings.ReplaceAll(title, " ", "-")),
			Title:    title,
			Currency: "USD",
			Impact:   event.ImpactHigh,
			Forecast: forecast,
			Previous: previous,
		},
		EventTimeUTC: timeUTC,
	}
}

func quietSession() session.Classification {
	return session.Classification{Session: event.SessionNewYork, Description: "New York session"}
}

func killZoneSession() session.Classification {
	return session.Classification{
		Session:     event.SessionNewYork,
		IsKillZone:  true,
		Description: "New York session, NY open kill zone",
	}
}

func TestHeuristicVolatilityTiers(t *testing.T) {
	h := NewHeuristicBackend()
	tests := []struct {
		title   string
		cls     session.Classification
		wantVol event.Volatility
		minConf int
		maxConf int
	}{
		{"Core CPI m/m", quietSession(), event.VolatilityHigh, 90, 92},
		{"FOMC Statement", killZoneSession(), event.VolatilityHigh, 90, 92},
		{"PPI m/m", quietSession(), event.VolatilityMedium, 76, 84},
		{"Services PMI", killZoneSession(), event.VolatilityHigh, 85, 85}, // session escalation
		{"Crude Oil Inventories", quietSession(), event.VolatilityLow, 70, 75},
	}
	for _, tt := range tests {
		anns, err := h.Annotate(context.Background(), []event.NormalizedEvent{
			normalized(tt.title, "2025-03-12T13:30:00Z", "", ""),
		}, tt.cls)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.title, err)
		}
		a := anns[0]
		if a.Volatility != tt.wantVol {
			t.Errorf("%s: volatility = %q, want %q", tt.title, a.Volatility, tt.wantVol)
		}
		if a.Confidence < tt.minConf || a.Confidence > tt.maxConf {
			t.Errorf("%s: confidence = %d, want within [%d,%d]", tt.title, a.Confidence, tt.minConf, tt.maxConf)
		}
		if a.Score < 1 || a.Score > 10 {
			t.Errorf("%s: score %d out of range", tt.title, a.Score)
		}
		if a.Comment == "" {
			t.Errorf("%s: empty comment", tt.title)
		}
	}
}

func TestHeuristicDirectionalBias(t *testing.T) {
	tests := []struct {
		title              string
		forecast, previous string
		want               event.Bias
	}{
		{"Core CPI m/m", "0.3%", "0.2%", event.BiasBullish},
		{"PPI m/m", "0.2%", "0.3%", event.BiasBearish},
		{"Non-Farm Employment Change", "185K", "185K", event.BiasNeutral},
		{"Building Permits", "1.48M", "1.45M", event.BiasBullish},
		{"FOMC Meeting Minutes", "", "", event.BiasNeutral},
		{"Consumer Sentiment", "strong", "78.8", event.BiasNeutral},
		// Rising claims are bad news regardless of the raw comparison.
		{"Unemployment Claims", "220K", "215K", event.BiasBearish},
		{"Initial Jobless Claims", "210K", "230K", event.BiasBearish},
		{"Unemployment Rate", "4.1%", "4.0%", event.BiasBearish},
	}
	for _, tt := range tests {
		ev := normalized(tt.title, "2025-03-12T13:30:00Z", tt.forecast, tt.previous)
		if got := directionalBias(ev); got != tt.want {
			t.Errorf("%s (%q vs %q): bias = %q, want %q", tt.title, tt.forecast, tt.previous, got, tt.want)
		}
	}
}

func TestHeuristicCohortConsistency(t *testing.T) {
	h := NewHeuristicBackend()
	// Core CPI (bearish print) against Building Permits (bullish print) at
	// the same instant: the CPI signal must win for the whole block.
	cohort := []event.NormalizedEvent{
		{RawEvent: event.RawEvent{Title: "Building Permits", Forecast: "1.48M", Previous: "1.45M"}, EventTimeUTC: "2025-03-12T13:30:00Z"},
		{RawEvent: event.RawEvent{Title: "Core CPI m/m", Forecast: "0.2%", Previous: "0.3%"}, EventTimeUTC: "2025-03-12T13:30:00Z"},
	}
	anns, err := h.Annotate(context.Background(), cohort, quietSession())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if anns[1].Bias != event.BiasBearish {
		t.Fatalf("dominant CPI bias = %q, want bearish", anns[1].Bias)
	}
	if anns[0].Bias != anns[1].Bias {
		t.Errorf("cohort biases diverge: %q vs %q", anns[0].Bias, anns[1].Bias)
	}
	if !strings.Contains(anns[0].Comment, "Core CPI m/m") {
		t.Errorf("override not explained in comment: %q", anns[0].Comment)
	}
}

func TestHeuristicDeterministic(t *testing.T) {
	h := NewHeuristicBackend()
	cohort := []event.NormalizedEvent{
		normalized("Retail Sales m/m", "2025-03-12T13:30:00Z", "0.5%", "0.4%"),
	}
	a, _ := h.Annotate(context.Background(), cohort, quietSession())
	b, _ := h.Annotate(context.Background(), cohort, quietSession())
	if a[0] != b[0] {
		t.Errorf("heuristic not deterministic: %+v vs %+v", a[0], b[0])
	}
}

func TestLeadingNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"0.3%", 0.3, true},
		{"220K", 220, true},
		{"1.48M", 1.48, true},
		{"-0.1%", -0.1, true},
		{"+2.5", 2.5, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"strong", 0, false},
	}
	for _, tt := range tests {
		got, ok := leadingNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("leadingNumber(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
