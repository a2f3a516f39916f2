package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/futuresdesk/newsradar/internal/event"
	"github.com/futuresdesk/newsradar/internal/session"
)

type mockBackend struct {
	anns       []Annotation
	err        error
	configured bool
	calls      int
}

func (m *mockBackend) Annotate(_ context.Context, cohort []event.NormalizedEvent, _ session.Classification) ([]Annotation, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.anns != nil {
		return m.anns, nil
	}
	anns := make([]Annotation, len(cohort))
	for i := range anns {
		anns[i] = Annotation{
			Bias:       event.BiasBullish,
			Volatility: event.VolatilityHigh,
			Score:      8,
			Confidence: 88,
			Comment:    "mock verdict",
		}
	}
	return anns, nil
}

func (m *mockBackend) Name() string       { return "mock" }
func (m *mockBackend) IsConfigured() bool { return m.configured }

func fixedEngine(backend Backend) *Engine {
	e := NewEngine(backend)
	e.now = func() time.Time { return time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC) }
	return e
}

func TestEnrichMapsAnnotations(t *testing.T) {
	e := fixedEngine(&mockBackend{configured: true})
	cohort := []event.NormalizedEvent{
		normalized("Core CPI m/m", "2025-03-12T13:30:00Z", "0.3%", "0.2%"),
	}

	got := e.Enrich(context.Background(), cohort, quietSession())
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	r := got[0]
	if r.ID != cohort[0].SourceID || r.Title != "Core CPI m/m" {
		t.Errorf("identity fields not carried: %+v", r)
	}
	if r.AIBias != event.BiasBullish || r.AIVolatility != event.VolatilityHigh {
		t.Errorf("annotation not applied: bias=%q vol=%q", r.AIBias, r.AIVolatility)
	}
	if r.AIEventScore != 8 || r.AIConfidence != 88 || r.AIComment != "mock verdict" {
		t.Errorf("annotation fields wrong: %+v", r)
	}
	if r.CreatedAt != "2025-03-12T14:00:00Z" {
		t.Errorf("CreatedAt = %q", r.CreatedAt)
	}
}

func TestEnrichBackendFailureFallsBack(t *testing.T) {
	e := fixedEngine(&mockBackend{err: errors.New("rate limited"), configured: true})
	cohort := []event.NormalizedEvent{
		normalized("Core CPI m/m", "2025-03-12T13:30:00Z", "0.3%", "0.2%"),
		normalized("Building Permits", "2025-03-12T13:30:00Z", "1.48M", "1.45M"),
		normalized("Retail Sales m/m", "2025-03-12T13:30:00Z", "0.5%", "0.4%"),
	}

	got := e.Enrich(context.Background(), cohort, quietSession())
	if len(got) != len(cohort) {
		t.Fatalf("got %d records for %d events", len(got), len(cohort))
	}
	for i, r := range got {
		if r.AIBias != event.BiasNeutral || r.AIVolatility != event.VolatilityMedium {
			t.Errorf("record %d: fallback enums wrong: bias=%q vol=%q", i, r.AIBias, r.AIVolatility)
		}
		if r.AIEventScore != 5 || r.AIConfidence != 50 {
			t.Errorf("record %d: fallback numbers wrong: score=%d conf=%d", i, r.AIEventScore, r.AIConfidence)
		}
		if r.AIComment != OfflineComment {
			t.Errorf("record %d: comment = %q", i, r.AIComment)
		}
		if r.Title != cohort[i].Title {
			t.Errorf("record %d: order not preserved", i)
		}
	}
}

func TestEnrichLengthMismatchFallsBack(t *testing.T) {
	e := fixedEngine(&mockBackend{anns: []Annotation{offlineAnnotation()}, configured: true})
	cohort := []event.NormalizedEvent{
		normalized("Core CPI m/m", "2025-03-12T13:30:00Z", "", ""),
		normalized("Building Permits", "2025-03-12T13:30:00Z", "", ""),
	}

	got := e.Enrich(context.Background(), cohort, quietSession())
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	for _, r := range got {
		if r.AIComment != OfflineComment || r.AIConfidence != 50 {
			t.Errorf("misaligned response not replaced by fallback: %+v", r)
		}
	}
}

func TestEnrichAllPreservesOrder(t *testing.T) {
	e := fixedEngine(&mockBackend{configured: true})
	cohorts := []event.Cohort{
		{TimeUTC: "2025-03-12T13:30:00Z", Events: []event.NormalizedEvent{
			normalized("Core CPI m/m", "2025-03-12T13:30:00Z", "", ""),
			normalized("Building Permits", "2025-03-12T13:30:00Z", "", ""),
		}},
		{TimeUTC: "2025-03-12T18:00:00Z", Events: []event.NormalizedEvent{
			normalized("FOMC Meeting Minutes", "2025-03-12T18:00:00Z", "", ""),
		}},
		{TimeUTC: event.TimeUnknown, Events: []event.NormalizedEvent{
			{RawEvent: event.RawEvent{SourceID: "x", Title: "Bank Holiday"}, EventTimeUTC: event.TimeUnknown},
		}},
	}

	got := e.EnrichAll(context.Background(), cohorts)
	wantTitles := []string{"Core CPI m/m", "Building Permits", "FOMC Meeting Minutes", "Bank Holiday"}
	if len(got) != len(wantTitles) {
		t.Fatalf("got %d records, want %d", len(got), len(wantTitles))
	}
	for i, w := range wantTitles {
		if got[i].Title != w {
			t.Errorf("record %d: title = %q, want %q", i, got[i].Title, w)
		}
	}
}

func TestMarketContextFallbacks(t *testing.T) {
	// Heuristic backend has no context capability.
	e := fixedEngine(NewHeuristicBackend())
	text, bias := e.MarketContext(context.Background())
	if !strings.Contains(text, "Wednesday") {
		t.Errorf("context missing weekday: %q", text)
	}
	if bias != event.BiasNeutral {
		t.Errorf("bias = %q, want neutral", bias)
	}

	// A mock with the capability but failing should use the offline sentence.
	e = fixedEngine(&failingContexter{})
	text, bias = e.MarketContext(context.Background())
	if !strings.Contains(text, "unavailable") || bias != event.BiasNeutral {
		t.Errorf("offline context wrong: %q / %q", text, bias)
	}
}

type failingContexter struct{ mockBackend }

func (f *failingContexter) IsConfigured() bool { return true }

func (f *failingContexter) MarketContext(context.Context, string) (string, event.Bias, error) {
	return "", event.BiasNeutral, errors.New("unreachable")
}

func TestParseAnnotations(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantLen int
		wantErr bool
	}{
		{
			name:    "plain array",
			in:      `[{"bias":"bullish","volatility":"high","score":8,"confidence":90,"comment":"ok"}]`,
			wantLen: 1,
		},
		{
			name:    "fenced with prose",
			in:      "Here is the analysis:\n```json\n[{\"bias\":\"bearish\",\"volatility\":\"low\",\"score\":2,\"confidence\":60,\"comment\":\"ok\"}]\n```",
			wantLen: 1,
		},
		{
			name:    "no array",
			in:      "I cannot analyze these events.",
			wantErr: true,
		},
		{
			name:    "malformed json",
			in:      `[{"bias": }]`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnnotations(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("got %d annotations, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestParseAnnotationsNormalizes(t *testing.T) {
	got, err := parseAnnotations(`[{"bias":"BULLISH","volatility":"extreme","score":14,"confidence":-5,"comment":"  "}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := got[0]
	if a.Bias != event.BiasBullish {
		t.Errorf("bias = %q, want bullish", a.Bias)
	}
	if a.Volatility != event.VolatilityMedium {
		t.Errorf("unknown volatility not defaulted: %q", a.Volatility)
	}
	if a.Score != 10 || a.Confidence != 0 {
		t.Errorf("clamping wrong: score=%d conf=%d", a.Score, a.Confidence)
	}
	if a.Comment != "No rationale provided." {
		t.Errorf("blank comment not defaulted: %q", a.Comment)
	}
}

func TestSelectBackend(t *testing.T) {
	t.Setenv("NEWSRADAR_TEST_KEY", "")
	b := SelectBackend("auto", "", "NEWSRADAR_TEST_KEY", 600, time.Second)
	if b.Name() != "heuristic" {
		t.Errorf("without key: backend = %q, want heuristic", b.Name())
	}

	b = SelectBackend("heuristic", "", "NEWSRADAR_TEST_KEY", 600, time.Second)
	if b.Name() != "heuristic" {
		t.Errorf("forced heuristic: backend = %q", b.Name())
	}

	t.Setenv("NEWSRADAR_TEST_KEY", "sk-test")
	b = SelectBackend("auto", "claude-3-5-haiku-latest", "NEWSRADAR_TEST_KEY", 600, time.Second)
	if !strings.HasPrefix(b.Name(), "anthropic/") {
		t.Errorf("with key: backend = %q, want anthropic/*", b.Name())
	}
}

func TestRemoteBackendUnconfigured(t *testing.T) {
	t.Setenv("NEWSRADAR_TEST_KEY", "")
	b := NewRemoteBackend("", "NEWSRADAR_TEST_KEY", 0, 0)
	if b.IsConfigured() {
		t.Fatal("backend with empty key reports configured")
	}
	if _, err := b.Annotate(context.Background(), []event.NormalizedEvent{
		normalized("Core CPI m/m", "2025-03-12T13:30:00Z", "", ""),
	}, quietSession()); err == nil {
		t.Fatal("expected error from unconfigured backend")
	}
}
