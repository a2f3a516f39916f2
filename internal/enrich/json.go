package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/futuresdesk/newsradar/internal/event"
)

type annotationPayload struct {
	Bias       string  `json:"bias"`
	Volatility string  `json:"volatility"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Comment    string  `json:"comment"`
}

// parseAnnotations extracts the JSON annotation array from a model
// response, tolerating markdown code fences and surrounding prose. Each
// element is normalized onto the enum domains and clamped into range so a
// sloppy response still yields a schema-complete annotation.
func parseAnnotations(text string) ([]Annotation, error) {
	text = stripCodeFences(strings.TrimSpace(text))

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON array in model response")
	}

	var payload []annotationPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("parsing annotation array: %w", err)
	}

	anns := make([]Annotation, len(payload))
	for i, p := range payload {
		bias, _ := event.ParseBias(p.Bias)
		vol, _ := event.ParseVolatility(p.Volatility)
		comment := strings.TrimSpace(p.Comment)
		if comment == "" {
			comment = "No rationale provided."
		}
		anns[i] = Annotation{
			Bias:       bias,
			Volatility: vol,
			Score:      clamp(p.Score, 1, 10),
			Confidence: clamp(p.Confidence, 0, 100),
			Comment:    comment,
		}
	}
	return anns, nil
}

func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.Join(lines[1:endIdx], "\n")
}

func clamp(v float64, lo, hi int) int {
	n := int(math.Round(v))
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
