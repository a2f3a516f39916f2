// Package pipeline orchestrates one feed refresh: fetch the calendar,
// normalize event times, enrich cohorts, persist the snapshot. Source
// failures degrade through the cache to synthetic fixtures; a refresh
// always produces a feed.
package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/futuresdesk/newsradar/internal/cache"
	"github.com/futuresdesk/newsradar/internal/config"
	"github.com/futuresdesk/newsradar/internal/enrich"
	"github.com/futuresdesk/newsradar/internal/event"
	"github.com/futuresdesk/newsradar/internal/source"
	"github.com/futuresdesk/newsradar/internal/store"
)

// Feed origins, in degradation order.
const (
	OriginLive    = "live"
	OriginCache   = "cache"
	OriginFixture = "fixture"
)

// Result holds the outcome of one refresh.
type Result struct {
	Events      []event.EnrichedEvent
	Origin      string
	Fetched     int
	Cohorts     int
	Unscheduled int
	StartedAt   time.Time
}

// Pipeline wires the source adapter, enrichment engine, snapshot cache
// and run archive together.
type Pipeline struct {
	cfg     *config.Config
	adapter *source.Adapter
	engine  *enrich.Engine
	cache   *cache.Store
	archive *store.DB
	now     func() time.Time
}

// New creates a pipeline from config. archive may be nil to skip run
// history.
func New(cfg *config.Config, archive *store.DB) *Pipeline {
	src := cfg.Source
	backend := enrich.SelectBackend(
		cfg.Enrichment.Provider,
		cfg.Enrichment.Model,
		cfg.Enrichment.APIKeyEnv,
		cfg.Enrichment.MaxTokens,
		cfg.EnrichmentTimeout(),
	)

	p := &Pipeline{
		cfg:     cfg,
		adapter: source.New(src.URL, src.Format, src.Currency, cfg.SourceTimeout(), src.Retries),
		engine:  enrich.NewEngine(backend),
		archive: archive,
		now:     time.Now,
	}
	p.cache = cache.New(cfg.CachePath(), func() []event.EnrichedEvent {
		return p.fixtureFeed(context.Background())
	})
	return p
}

// Cache exposes the snapshot store for freshness checks.
func (p *Pipeline) Cache() *cache.Store { return p.cache }

// MarketContext produces the day-of-week market context line.
func (p *Pipeline) MarketContext(ctx context.Context) (string, event.Bias) {
	return p.engine.MarketContext(ctx)
}

// Run executes one refresh. A live fetch failure falls back to the
// cached snapshot; with no usable snapshot, synthetic fixture events run
// through the same normalize-and-enrich path.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	r := &Result{Origin: OriginLive, StartedAt: p.now()}

	raw, err := p.adapter.Fetch(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.Printf("Source fetch failed: %v", err)

		if rec, cerr := p.cache.ReadRecord(); cerr == nil {
			log.Printf("Serving %d cached event(s) from %s", len(rec.News), rec.LastUpdated)
			r.Origin = OriginCache
			r.Events = rec.News
			event.SortByTime(r.Events)
			return r, nil
		}

		log.Printf("No usable cache; using fixture events")
		r.Origin = OriginFixture
		raw = source.Fixtures()
	}
	r.Fetched = len(raw)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := p.normalize(raw, r)
	cohorts := event.BuildCohorts(normalized)
	r.Cohorts = len(cohorts)

	r.Events = p.engine.EnrichAll(ctx, cohorts)
	event.SortByTime(r.Events)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.cache.Write(r.Events); err != nil {
		log.Printf("Cache write failed: %v", err)
	}
	if p.archive != nil {
		if _, err := p.archive.RecordRun(r.StartedAt, r.Origin, r.Events); err != nil {
			log.Printf("Archiving run failed: %v", err)
		}
	}

	log.Printf("Refresh complete: %d event(s) in %d cohort(s), origin %s", len(r.Events), r.Cohorts, r.Origin)
	return r, nil
}

// normalize resolves every raw event's UTC time. Events whose schedule
// cannot be resolved are kept with the unknown-time sentinel and counted.
func (p *Pipeline) normalize(raw []event.RawEvent, r *Result) []event.NormalizedEvent {
	normalized := make([]event.NormalizedEvent, 0, len(raw))
	for _, re := range raw {
		timeUTC, err := event.ResolveEventTime(re.DateText, re.TimeText)
		if err != nil {
			var perr *event.TimeParseError
			if errors.As(err, &perr) {
				log.Printf("Unresolvable schedule for %q (%q %q); keeping as unscheduled", re.Title, re.DateText, re.TimeText)
			}
			timeUTC = event.TimeUnknown
			r.Unscheduled++
		}
		normalized = append(normalized, event.NormalizedEvent{RawEvent: re, EventTimeUTC: timeUTC})
	}
	return normalized
}

// fixtureFeed normalizes and enriches the synthetic events; it backs the
// cache store's last-resort fallback.
func (p *Pipeline) fixtureFeed(ctx context.Context) []event.EnrichedEvent {
	r := &Result{}
	cohorts := event.BuildCohorts(p.normalize(source.Fixtures(), r))
	events := p.engine.EnrichAll(ctx, cohorts)
	event.SortByTime(events)
	return events
}
