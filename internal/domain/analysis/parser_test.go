package analysis_test

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/bryanwahyu/callscore/internal/domain/analysis"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func fullResult() analysis.AnalysisResult {
	cats := map[analysis.CategoryKey]analysis.CategoryAnalysis{}
	for i, k := range analysis.AllKeys {
		cats[k] = analysis.CategoryAnalysis{
			Score:               analysis.Score(i + 3),
			Highlights:          []string{"asked about goals"},
			MissedOpportunities: []string{"did not quantify pain"},
			Feedback:            []string{"ask a follow-up question"},
		}
	}
	return analysis.AnalysisResult{
		OverallScore:    80,
		Categories:      cats,
		PaymentDetected: analysis.PaymentInFull,
		Summary:         "Good call",
	}
}

var _ = Describe("ParseResponse", func() {
	It("round-trips a well-formed result", func() {
		want := fullResult()
		b, err := json.Marshal(want)
		Expect(err).NotTo(HaveOccurred())

		got := analysis.ParseResponse(string(b))
		Expect(got).To(Equal(want))
		Expect(got.IsDegraded()).To(BeFalse())
	})

	It("extracts the object from surrounding prose", func() {
		reply := "Here is the analysis:\n```json\n" +
			`{"overall_score":80,"categories":{"needs_discovery":{"score":8,"highlights":["a"],"missed_opportunities":[],"feedback":["b"]}},"payment_detected":"PIF","summary":"Good call"}` +
			"\n```\nLet me know if you need more."

		got := analysis.ParseResponse(reply)
		Expect(got.IsDegraded()).To(BeFalse())
		Expect(got.OverallScore).To(Equal(analysis.Score(80)))
		Expect(got.Payment()).To(Equal(analysis.PaymentInFull))
		Expect(got.Categories).To(HaveLen(1))
		Expect(got.Categories[analysis.NeedsDiscovery].Score).To(Equal(analysis.Score(8)))
	})

	It("accepts float and string scores", func() {
		got := analysis.ParseResponse(`{"overall_score":"72.6","categories":{"needs_discovery":{"score":7.5}}}`)
		Expect(got.IsDegraded()).To(BeFalse())
		Expect(got.OverallScore).To(Equal(analysis.Score(73)))
		Expect(got.Categories[analysis.NeedsDiscovery].Score).To(Equal(analysis.Score(8)))
	})

	It("leaves missing categories missing", func() {
		got := analysis.ParseResponse(`{"overall_score":40,"categories":{},"summary":"short"}`)
		Expect(got.IsDegraded()).To(BeFalse())
		Expect(got.Categories).To(BeEmpty())
		Expect(got.Payment()).To(Equal(analysis.PaymentUnknown))
	})

	DescribeTable("degrades when there is no decodable object",
		func(reply string) {
			got := analysis.ParseResponse(reply)
			Expect(got.IsDegraded()).To(BeTrue())
			Expect(*got.RawAnalysis).To(Equal(reply))
			Expect(got.OverallScore).To(Equal(analysis.Score(50)))
			Expect(got.PaymentDetected).To(Equal(analysis.PaymentUnknown))
			Expect(got.Categories).To(HaveLen(6))
			for _, k := range analysis.AllKeys {
				Expect(got.Categories).To(HaveKey(k))
				Expect(got.Categories[k].Score).To(Equal(analysis.Score(5)))
				Expect(got.Categories[k].Highlights).To(HaveLen(1))
				Expect(got.Categories[k].MissedOpportunities).To(HaveLen(1))
				Expect(got.Categories[k].Feedback).To(HaveLen(1))
			}
		},
		Entry("plain refusal", "Sorry, I cannot comply."),
		Entry("empty reply", ""),
		Entry("only an opening brace", "{ oops"),
		Entry("braces in the wrong order", "} then {"),
		Entry("invalid json between braces", "{not json}"),
		Entry("wrong type for categories", `{"categories": [1, 2, 3]}`),
		Entry("NaN score", `{"categories": {"consequence_urgency": {"score": "NaN"}}}`),
		Entry("infinite score", `{"categories": {"consequence_urgency": {"score": "Infinity"}}}`),
		Entry("huge score", `{"categories": {"consequence_urgency": {"score": 1e300}}}`),
		Entry("huge negative overall score", `{"overall_score": "-1e19", "categories": {}}`),
	)

	It("keeps the first 500 characters in the degraded summary", func() {
		got := analysis.ParseResponse("Sorry, I cannot comply.")
		Expect(got.Summary).To(Equal("Raw analysis text: Sorry, I cannot comply...."))

		long := strings.Repeat("é", 600)
		got = analysis.ParseResponse(long)
		Expect(got.Summary).To(Equal("Raw analysis text: " + strings.Repeat("é", 500) + "..."))
		Expect(*got.RawAnalysis).To(Equal(long))
	})
})

var _ = Describe("FailedResult", func() {
	It("has no categories and carries the error", func() {
		got := analysis.FailedResult(errors.New("connection refused"))
		Expect(got.OverallScore).To(Equal(analysis.Score(0)))
		Expect(got.Categories).To(BeEmpty())
		Expect(got.Error).To(Equal("connection refused"))
		Expect(got.Summary).To(Equal("Analysis failed due to an error."))
		Expect(got.Failed()).To(BeTrue())
		Expect(got.IsDegraded()).To(BeFalse())
	})
})
