package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// AllKeys lists the six fixed category keys in display order.
var AllKeys = []CategoryKey{
	NeedsDiscovery,
	PainPointExploration,
	ConsequenceUrgency,
	ObstacleHandling,
	ObjectionHandling,
	NextStepsClosing,
}

// PaymentMethod enum
type PaymentMethod string

const (
	PaymentInFull  PaymentMethod = "PIF"
	PaymentSplit   PaymentMethod = "split pay"
	PaymentMonthly PaymentMethod = "monthly"
	PaymentUnknown PaymentMethod = "Unknown"
)

// Score is an integer that also accepts JSON floats and numeric strings,
// rounded to the nearest integer.
type Score int

// Decoded scores beyond this magnitude are rejected.
const maxScoreMagnitude = 1000

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(str)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", data, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxScoreMagnitude {
		return fmt.Errorf("score %q out of range", data)
	}
	*s = Score(math.Round(f))
	return nil
}

// CategoryAnalysis is the evaluation of one rubric category.
type CategoryAnalysis struct {
	Score               Score    `json:"score"`
	Highlights          []string `json:"highlights"`
	MissedOpportunities []string `json:"missed_opportunities"`
	Feedback            []string `json:"feedback"`
}

// IsZero reports whether the category carried no data at all, as with a
// JSON null or {} entry.
func (c CategoryAnalysis) IsZero() bool {
	return c.Score == 0 && len(c.Highlights) == 0 && len(c.MissedOpportunities) == 0 && len(c.Feedback) == 0
}

// AnalysisResult is the canonical evaluation shape every stage after the
// parser depends on. OverallScore is what the model reported; the report
// always recomputes its own weighted total.
type AnalysisResult struct {
	OverallScore    Score                            `json:"overall_score"`
	Categories      map[CategoryKey]CategoryAnalysis `json:"categories"`
	PaymentDetected PaymentMethod                    `json:"payment_detected,omitempty"`
	Summary         string                           `json:"summary"`
	Error           string                           `json:"error,omitempty"`
	RawAnalysis     *string                          `json:"raw_analysis,omitempty"`
}

// IsDegraded reports whether the result came from the parsing fallback.
func (r AnalysisResult) IsDegraded() bool { return r.RawAnalysis != nil }

// Failed reports whether the evaluation call itself failed.
func (r AnalysisResult) Failed() bool { return r.Error != "" }

// Payment returns the detected payment method, Unknown when unset.
func (r AnalysisResult) Payment() PaymentMethod {
	if r.PaymentDetected == "" {
		return PaymentUnknown
	}
	return r.PaymentDetected
}

const (
	degradedOverallScore  = 50
	degradedCategoryScore = 5
	degradedExcerptLen    = 500
	failedSummary         = "Analysis failed due to an error."
)

// Degraded builds the fallback result for a reply that could not be decoded.
func Degraded(raw string) AnalysisResult {
	categories := make(map[CategoryKey]CategoryAnalysis, len(AllKeys))
	for _, k := range AllKeys {
		categories[k] = CategoryAnalysis{
			Score:               degradedCategoryScore,
			Highlights:          []string{"Analysis parsing failed"},
			MissedOpportunities: []string{"Unable to parse detailed analysis"},
			Feedback:            []string{"Please review the raw analysis text"},
		}
	}
	rawCopy := raw
	return AnalysisResult{
		OverallScore:    degradedOverallScore,
		Categories:      categories,
		PaymentDetected: PaymentUnknown,
		Summary:         fmt.Sprintf("Raw analysis text: %s...", excerpt(raw, degradedExcerptLen)),
		RawAnalysis:     &rawCopy,
	}
}

// FailedResult builds the zero-score result for a failed evaluation call.
func FailedResult(err error) AnalysisResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return AnalysisResult{
		OverallScore: 0,
		Categories:   map[CategoryKey]CategoryAnalysis{},
		Summary:      failedSummary,
		Error:        msg,
	}
}

// excerpt cuts s to at most n runes.
func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
