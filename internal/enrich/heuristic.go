package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/futuresdesk/newsradar/internal/event"
	"github.com/futuresdesk/newsradar/internal/session"
)

// HeuristicBackend is the deterministic annotation path. It always exists,
// both as the standalone backend when no model credentials are configured
// and as the availability floor the engine's failure semantics assume.
type HeuristicBackend struct{}

// NewHeuristicBackend creates the deterministic backend.
func NewHeuristicBackend() *HeuristicBackend { return &HeuristicBackend{} }

func (h *HeuristicBackend) Name() string       { return "heuristic" }
func (h *HeuristicBackend) IsConfigured() bool { return true }

// indicatorTier carries the keyword sets and their institutional weight
// used for both volatility classification and cohort-dominance resolution.
type indicatorTier struct {
	keyword string
	weight  int
}

var highTier = []indicatorTier{
	{"cpi", 100},
	{"nfp", 95},
	{"non-farm", 95},
	{"fomc", 95},
	{"rate decision", 95},
	{"interest rate", 90},
	{"gdp", 85},
	{"employment", 80},
}

var mediumTier = []indicatorTier{
	{"ppi", 60},
	{"retail sales", 55},
	{"jobless", 55},
	{"claims", 55},
	{"pmi", 50},
}

func matchTier(title string, tier []indicatorTier) (int, bool) {
	title = strings.ToLower(title)
	for _, t := range tier {
		if strings.Contains(title, t.keyword) {
			return t.weight, true
		}
	}
	return 0, false
}

// importance ranks an indicator for cohort-dominance resolution: a CPI
// print outweighs a PMI release at the same instant.
func importance(title string) int {
	if w, ok := matchTier(title, highTier); ok {
		return w
	}
	if w, ok := matchTier(title, mediumTier); ok {
		return w
	}
	return 20
}

// Annotate scores each event independently, then reconciles the cohort to
// a single directional bias: the most institutionally important member's
// bias overrides the rest.
func (h *HeuristicBackend) Annotate(_ context.Context, cohort []event.NormalizedEvent, cls session.Classification) ([]Annotation, error) {
	anns := make([]Annotation, len(cohort))
	for i, ev := range cohort {
		anns[i] = h.annotateOne(ev, cls)
	}

	if len(cohort) > 1 {
		dominant := 0
		best := importance(cohort[0].Title)
		for i := 1; i < len(cohort); i++ {
			if w := importance(cohort[i].Title); w > best {
				dominant, best = i, w
			}
		}
		verdict := anns[dominant].Bias
		for i := range anns {
			if i == dominant || anns[i].Bias == verdict {
				continue
			}
			anns[i].Bias = verdict
			anns[i].Comment += fmt.Sprintf(" Bias aligned with %s for this time block.", cohort[dominant].Title)
		}
	}

	return anns, nil
}

func (h *HeuristicBackend) annotateOne(ev event.NormalizedEvent, cls session.Classification) Annotation {
	inWindow := cls.IsKillZone || cls.IsOverlap

	var vol event.Volatility
	var score, conf int
	switch {
	case titleMatches(ev.Title, highTier):
		vol = event.VolatilityHigh
		score, conf = 8, 90
		if inWindow {
			score, conf = 9, 92
		}
	case titleMatches(ev.Title, mediumTier):
		vol, score, conf = event.VolatilityMedium, 6, 80
		if inWindow {
			// A mid-tier print landing in a kill zone or the overlap
			// trades like a high-impact one.
			vol, score, conf = event.VolatilityHigh, 7, 85
		}
	default:
		vol, score, conf = event.VolatilityLow, 3, 72
	}

	bias := directionalBias(ev)

	lead := cls.Description
	if day, ok := eventWeekday(ev.EventTimeUTC); ok {
		lead = day + " " + lead
	}
	comment := fmt.Sprintf("%s: %s volatility expected from %s, %s lean for ES/NQ.", lead, vol, ev.Title, bias)

	return Annotation{Bias: bias, Volatility: vol, Score: score, Confidence: conf, Comment: comment}
}

func titleMatches(title string, tier []indicatorTier) bool {
	_, ok := matchTier(title, tier)
	return ok
}

// directionalBias compares forecast against previous when both parse as
// numbers. Titles about unemployment or jobless figures force bearish:
// rising-claims semantics dominate the naive magnitude comparison.
func directionalBias(ev event.NormalizedEvent) event.Bias {
	title := strings.ToLower(ev.Title)
	if strings.Contains(title, "unemployment") || strings.Contains(title, "jobless") {
		return event.BiasBearish
	}

	forecast, fok := leadingNumber(ev.Forecast)
	previous, pok := leadingNumber(ev.Previous)
	if !fok || !pok {
		return event.BiasNeutral
	}
	switch {
	case forecast > previous:
		return event.BiasBullish
	case forecast < previous:
		return event.BiasBearish
	}
	return event.BiasNeutral
}

var numberPattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?`)

// leadingNumber extracts the leading numeric token from free-text values
// like "0.3%", "220K" or "1.48M". Suffixes are tolerated, not scaled;
// the feed compares like against like.
func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	tok := numberPattern.FindString(s)
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func eventWeekday(timeUTC string) (string, bool) {
	t, err := time.Parse(time.RFC3339, timeUTC)
	if err != nil {
		return "", false
	}
	return t.In(session.NYLocation()).Weekday().String(), true
}
