// Package enrich annotates normalized calendar events with a market-impact
// assessment: directional bias, expected volatility, an impact score, a
// confidence value and a short rationale. Simultaneous events are processed
// as one atomic cohort so they receive a single coherent verdict.
package enrich

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/futuresdesk/newsradar/internal/event"
	"github.com/futuresdesk/newsradar/internal/session"
)

// Annotation is one event's assessment, aligned by index with the cohort
// that produced it.
type Annotation struct {
	Bias       event.Bias
	Volatility event.Volatility
	Score      int
	Confidence int
	Comment    string
}

// Backend produces annotations for a whole cohort in one call. The cohort
// is never split across calls; that is what keeps simultaneous events from
// receiving contradictory biases.
type Backend interface {
	Annotate(ctx context.Context, cohort []event.NormalizedEvent, cls session.Classification) ([]Annotation, error)
	Name() string
	IsConfigured() bool
}

// OfflineComment marks the complete fallback record substituted when the
// enrichment path fails. Length parity with the input cohort is preserved;
// events are never dropped.
const OfflineComment = "AI Engine offline. Manual bias assessment required for ES/NQ."

func offlineAnnotation() Annotation {
	return Annotation{
		Bias:       event.BiasNeutral,
		Volatility: event.VolatilityMedium,
		Score:      5,
		Confidence: 50,
		Comment:    OfflineComment,
	}
}

// SelectBackend picks the annotation backend at construction time: the
// remote model when credentials are present (unless the config forces the
// heuristic), the deterministic heuristic otherwise.
func SelectBackend(provider, model, apiKeyEnv string, maxTokens int, timeout time.Duration) Backend {
	if provider != "heuristic" {
		remote := NewRemoteBackend(model, apiKeyEnv, maxTokens, timeout)
		if remote.IsConfigured() {
			log.Printf("Using %s for enrichment", remote.Name())
			return remote
		}
		if provider == "anthropic" {
			log.Printf("Enrichment provider %q requested but %s is not set; using heuristic backend", provider, apiKeyEnv)
		}
	}
	return NewHeuristicBackend()
}

// Engine drives enrichment through the configured backend and guarantees
// the output contract: same length, same order, every field populated.
type Engine struct {
	backend Backend
	now     func() time.Time
}

// NewEngine creates an engine over the given backend.
func NewEngine(backend Backend) *Engine {
	return &Engine{backend: backend, now: time.Now}
}

// Enrich annotates one cohort. Any backend failure, including a response
// that does not align with the input, substitutes the complete offline
// fallback record for every member.
func (e *Engine) Enrich(ctx context.Context, cohort []event.NormalizedEvent, cls session.Classification) []event.EnrichedEvent {
	if len(cohort) == 0 {
		return nil
	}

	anns, err := e.backend.Annotate(ctx, cohort, cls)
	if err == nil && len(anns) != len(cohort) {
		err = fmt.Errorf("backend returned %d annotations for %d events", len(anns), len(cohort))
	}
	if err != nil {
		log.Printf("Enrichment failed for %d event(s) at %s: %v", len(cohort), cohort[0].EventTimeUTC, err)
		anns = make([]Annotation, len(cohort))
		for i := range anns {
			anns[i] = offlineAnnotation()
		}
	}

	createdAt := e.now().UTC().Format(time.RFC3339)
	out := make([]event.EnrichedEvent, len(cohort))
	for i, ev := range cohort {
		out[i] = event.EnrichedEvent{
			ID:           ev.SourceID,
			Title:        ev.Title,
			Impact:       ev.Impact,
			EventTimeUTC: ev.EventTimeUTC,
			Forecast:     ev.Forecast,
			Previous:     ev.Previous,
			AIBias:       anns[i].Bias,
			AIVolatility: anns[i].Volatility,
			AIComment:    anns[i].Comment,
			AIEventScore: anns[i].Score,
			AIConfidence: anns[i].Confidence,
			CreatedAt:    createdAt,
		}
	}
	return out
}

// EnrichAll fans cohorts out concurrently. Cohorts share no mutable state
// and each remains one atomic backend call, so the fan-out is safe. Output
// preserves cohort order and member order within each cohort.
func (e *Engine) EnrichAll(ctx context.Context, cohorts []event.Cohort) []event.EnrichedEvent {
	results := make([][]event.EnrichedEvent, len(cohorts))
	var wg sync.WaitGroup
	for i, c := range cohorts {
		wg.Add(1)
		go func(i int, c event.Cohort) {
			defer wg.Done()
			results[i] = e.Enrich(ctx, c.Events, classifyCohort(c))
		}(i, c)
	}
	wg.Wait()

	var out []event.EnrichedEvent
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func classifyCohort(c event.Cohort) session.Classification {
	t, err := time.Parse(time.RFC3339, c.TimeUTC)
	if err != nil {
		return session.Classification{Description: "schedule unknown"}
	}
	return session.Classify(t)
}

// contexter is the optional capability for free-form market commentary;
// only the remote backend implements it.
type contexter interface {
	MarketContext(ctx context.Context, day string) (string, event.Bias, error)
}

// MarketContext produces a short day-of-week market context line. Without
// a configured remote backend it falls back to a templated sentence.
func (e *Engine) MarketContext(ctx context.Context) (string, event.Bias) {
	day := e.now().In(session.NYLocation()).Weekday().String()
	if c, ok := e.backend.(contexter); ok && e.backend.IsConfigured() {
		text, bias, err := c.MarketContext(ctx, day)
		if err == nil {
			return fmt.Sprintf("[%s] %s", day, text), bias
		}
		log.Printf("Market context generation failed: %v", err)
		return fmt.Sprintf("Today is %s. AI Context engine unavailable. Focus on high impact news releases.", day), event.BiasNeutral
	}
	return fmt.Sprintf("Today is %s. Standard institutional positioning expected with moderate movement.", day), event.BiasNeutral
}
