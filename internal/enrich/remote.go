package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/futuresdesk/newsradar/internal/event"
	"github.com/futuresdesk/newsradar/internal/session"
)

// RemoteBackend annotates cohorts through the Anthropic Messages API.
// One call covers a whole cohort and carries an explicit consistency
// instruction, so simultaneous events come back with one unified bias.
type RemoteBackend struct {
	client    anthropic.Client
	model     string
	apiKey    string
	maxTokens int
	timeout   time.Duration
}

// NewRemoteBackend creates the model-backed annotation backend. The key is
// read from the named environment variable; an empty key leaves the
// backend unconfigured and SelectBackend routes to the heuristic instead.
func NewRemoteBackend(model, apiKeyEnv string, maxTokens int, timeout time.Duration) *RemoteBackend {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if maxTokens <= 0 {
		maxTokens = 600
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	key := os.Getenv(apiKeyEnv)
	return &RemoteBackend{
		client:    anthropic.NewClient(option.WithAPIKey(key)),
		model:     model,
		apiKey:    key,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

func (b *RemoteBackend) Name() string       { return "anthropic/" + b.model }
func (b *RemoteBackend) IsConfigured() bool { return b.apiKey != "" }

// Annotate sends the cohort to the model and parses the aligned JSON
// array out of its response. Any transport, rate-limit or shape failure
// surfaces as an error; the engine substitutes the offline fallback.
func (b *RemoteBackend) Annotate(ctx context.Context, cohort []event.NormalizedEvent, cls session.Classification) ([]Annotation, error) {
	if b.apiKey == "" {
		return nil, errors.New("anthropic API key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	text, err := b.complete(ctx, buildCohortPrompt(cohort, cls))
	if err != nil {
		return nil, err
	}

	anns, err := parseAnnotations(text)
	if err != nil {
		return nil, err
	}
	if len(anns) != len(cohort) {
		return nil, fmt.Errorf("model returned %d annotations for %d events", len(anns), len(cohort))
	}
	return anns, nil
}

// MarketContext asks the model for a two-sentence day-of-week context line.
func (b *RemoteBackend) MarketContext(ctx context.Context, day string) (string, event.Bias, error) {
	if b.apiKey == "" {
		return "", event.BiasNeutral, errors.New("anthropic API key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Provide a very brief (2 sentences) market context for TODAY (%s) for USD Futures (ES/NQ).
Include if it's expected to be a high or low movement day based on typical %s behavior and positioning.
Return JSON: {"text": "...", "bias": "bullish" | "bearish" | "neutral"}`, day, day)

	text, err := b.complete(ctx, prompt)
	if err != nil {
		return "", event.BiasNeutral, err
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", event.BiasNeutral, errors.New("no JSON object in context response")
	}
	var payload struct {
		Text string `json:"text"`
		Bias string `json:"bias"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return "", event.BiasNeutral, fmt.Errorf("parsing context response: %w", err)
	}
	bias, _ := event.ParseBias(payload.Bias)
	return payload.Text, bias, nil
}

func (b *RemoteBackend) complete(ctx context.Context, prompt string) (string, error) {
	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("empty model response")
	}
	return sb.String(), nil
}

func buildCohortPrompt(cohort []event.NormalizedEvent, cls session.Classification) string {
	var sb strings.Builder
	for i, ev := range cohort {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Event #%d:\nTitle: %s\nForecast: %s\nPrevious: %s",
			i+1, ev.Title, orNA(ev.Forecast), orNA(ev.Previous))
	}

	return fmt.Sprintf(`Analyze these economic news events unfolding SIMULTANEOUSLY for a USD futures trader (ES/NQ).
Session context: %s.
Events:
%s

CRITICAL: Provide a unified and consistent analysis. If multiple events conflict, weigh their institutional importance (e.g., CPI > Retail Sales) to determine a single, final MARKET BIAS for this time block. Avoid giving mixed signals for the same timestamp.

Provide analysis as a JSON array of objects, one for each event in the order provided:
[
    {
        "bias": "bullish" | "bearish" | "neutral",
        "volatility": "low" | "medium" | "high",
        "score": 1-10 (how much this impacts ES/NQ),
        "confidence": 0-100,
        "comment": "1 short sentence about cumulative ES/NQ impact regarding this specific event"
    },
    ...
]`, cls.Description, sb.String())
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
