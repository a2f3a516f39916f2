// Package source fetches raw calendar data from the configured feed and
// normalizes each record into an event.RawEvent. Currency, impact and
// empty-title filtering happens here, at ingestion.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/futuresdesk/newsradar/internal/event"
)

// The calendar endpoint 403s default Go user agents, so the adapter
// presents a browser-like identity.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

const maxPayloadBytes = 8 << 20

// FetchError reports a transport or whole-payload failure reaching the
// calendar feed. The pipeline recovers from it via the cache/fixture chain.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("calendar feed %s returned %d", e.URL, e.Status)
	}
	return fmt.Sprintf("calendar feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Format selects the payload parser.
const (
	FormatAuto = "auto"
	FormatHTML = "html"
	FormatXML  = "xml"
)

// Adapter fetches and parses the remote calendar feed.
type Adapter struct {
	url      string
	format   string
	currency string
	retries  int
	client   *http.Client
	now      func() time.Time
}

// New creates an adapter for the given feed URL and target currency.
// retries is the number of additional attempts after a failed fetch.
func New(feedURL, format, currency string, timeout time.Duration, retries int) *Adapter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if format == "" {
		format = FormatAuto
	}
	return &Adapter{
		url:      feedURL,
		format:   format,
		currency: strings.ToUpper(currency),
		retries:  retries,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// Fetch retrieves and parses the calendar feed, returning only records that
// pass the ingestion filters. A FetchError means the caller should fall
// back to the cache/fixture chain; Fetch itself never fabricates data.
func (a *Adapter) Fetch(ctx context.Context) ([]event.RawEvent, error) {
	var lastErr error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &FetchError{URL: a.url, Err: ctx.Err()}
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		events, err := a.fetchOnce(ctx)
		if err == nil {
			return events, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (a *Adapter) fetchOnce(ctx context.Context) ([]event.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, &FetchError{URL: a.url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: a.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: a.url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, &FetchError{URL: a.url, Err: err}
	}

	format := a.format
	if format == FormatAuto {
		format = sniffFormat(body)
	}

	var events []event.RawEvent
	switch format {
	case FormatXML:
		events, err = parseCalendarXML(body, a.currency)
	default:
		events, err = parseCalendarHTML(body, a.currency, a.now())
	}
	if err != nil {
		// A wholly unparseable payload is indistinguishable from a broken
		// feed, so it degrades the same way as a transport failure.
		return nil, &FetchError{URL: a.url, Err: err}
	}
	return events, nil
}

// sniffFormat inspects the payload head for the weekly-calendar XML root.
func sniffFormat(body []byte) string {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.Contains(head, []byte("<weeklyevents")) || bytes.HasPrefix(bytes.TrimSpace(head), []byte("<?xml")) {
		return FormatXML
	}
	return FormatHTML
}

// synthesizeID builds a stable, storage-friendly id from a slug of
// title+date plus a sequence number, for records the feed ships without one.
func synthesizeID(title, dateText string, seq int) string {
	slug := slugify(title + " " + dateText)
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "-")
	}
	return fmt.Sprintf("%s-%d", slug, seq)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
