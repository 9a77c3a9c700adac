package report_test

import (
	"errors"
	"time"

	"github.com/bryanwahyu/callscore/internal/domain/analysis"
	"github.com/bryanwahyu/callscore/internal/domain/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func kinds(doc report.Document) []report.BlockKind {
	out := make([]report.BlockKind, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		out = append(out, b.Kind)
	}
	return out
}

func texts(doc report.Document) []string {
	var out []string
	for _, b := range doc.Blocks {
		if b.Text != "" {
			out = append(out, b.Text)
		}
	}
	return out
}

var _ = Describe("Assemble", func() {
	var (
		rubric analysis.Rubric
		meta   report.Meta
	)

	BeforeEach(func() {
		rubric = analysis.DefaultRubric()
		meta = report.Meta{
			MeetingTitle: "Discovery call",
			CreatedAt:    "2024-05-01T10:00:00Z",
			GeneratedAt:  time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		}
	})

	It("lays out a single populated category in order", func() {
		result := analysis.AnalysisResult{
			OverallScore: 80,
			Categories: map[analysis.CategoryKey]analysis.CategoryAnalysis{
				analysis.NeedsDiscovery: {
					Score:      8,
					Highlights: []string{"asked about goals"},
					Feedback:   []string{"dig deeper"},
				},
			},
			PaymentDetected: analysis.PaymentInFull,
			Summary:         "Good call",
		}

		doc := report.Assemble(rubric, meta, "[00:01] Coach: hi\n\n[00:02] Client: hello\n", result)

		Expect(kinds(doc)).To(Equal([]report.BlockKind{
			report.BlockTitle,
			report.BlockKeyValueTable,
			report.BlockHeading, report.BlockParagraph,
			report.BlockHeading, report.BlockScoreTable,
			report.BlockHeading,
			report.BlockPageBreak,
			report.BlockHeading,
			report.BlockHeading, report.BlockParagraph,
			report.BlockHeading, report.BlockBulletList,
			report.BlockHeading, report.BlockBulletList,
			report.BlockPageBreak,
			report.BlockHeading,
			report.BlockParagraph, report.BlockParagraph,
		}))

		Expect(doc.Blocks[0].Text).To(Equal(report.ReportTitle))
		Expect(doc.Blocks[1].Rows).To(Equal([][]string{
			{"Meeting Title:", "Discovery call"},
			{"Date:", "2024-05-01T10:00:00Z"},
			{"Overall Score:", "20.0/100"},
			{"Reported Score:", "80/100"},
			{"Analysis Date:", "2024-05-01 12:30:00"},
		}))
		Expect(doc.Blocks[3].Text).To(Equal("Good call"))
		Expect(doc.Blocks[6].Text).To(Equal("Payment Method Detected: PIF"))
		Expect(doc.Blocks[9].Text).To(Equal("Needs Discovery (25 pts)"))
		Expect(doc.Blocks[10].Text).To(Equal("Score: 8/10"))
		Expect(doc.Blocks[11].Text).To(Equal("What Went Well:"))
		Expect(doc.Blocks[12].Items).To(Equal([]string{"asked about goals"}))
		Expect(doc.Blocks[13].Text).To(Equal("Actionable Feedback:"))
		Expect(doc.Blocks[17].Text).To(Equal("[00:01] Coach: hi"))
		Expect(doc.Blocks[18].Text).To(Equal("[00:02] Client: hello"))
	})

	It("writes a score table with every category and a total row", func() {
		doc := report.Assemble(rubric, meta, "", analysis.Degraded("garbage"))

		var table report.Block
		for _, b := range doc.Blocks {
			if b.Kind == report.BlockScoreTable {
				table = b
			}
		}
		Expect(table.Rows).To(HaveLen(8))
		Expect(table.Rows[0]).To(Equal([]string{"Category", "Score", "Weighted Score"}))
		Expect(table.Rows[1]).To(Equal([]string{"Needs Discovery (25 pts)", "5/10", "12.5/25"}))
		Expect(table.Rows[7]).To(Equal([]string{"TOTAL", "", "50.0/100"}))
	})

	It("skips the payment line when payment is unknown or unset", func() {
		for _, p := range []analysis.PaymentMethod{analysis.PaymentUnknown, ""} {
			doc := report.Assemble(rubric, meta, "", analysis.AnalysisResult{PaymentDetected: p})
			for _, t := range texts(doc) {
				Expect(t).NotTo(HavePrefix("Payment Method Detected"))
			}
		}
	})

	It("handles a failed analysis with no categories", func() {
		doc := report.Assemble(rubric, meta, "", analysis.FailedResult(errors.New("timeout")))

		Expect(texts(doc)).To(ContainElements(
			"Analysis failed due to an error.",
			"Analysis Error: timeout",
			"Detailed Category Analysis",
		))
		for _, c := range rubric.Categories() {
			Expect(texts(doc)).NotTo(ContainElement(c.DisplayName()))
		}
	})

	It("falls back when the summary is empty", func() {
		doc := report.Assemble(rubric, meta, "", analysis.AnalysisResult{})
		Expect(texts(doc)).To(ContainElement("No summary available."))
	})

	It("keeps a whitespace-only summary as given", func() {
		doc := report.Assemble(rubric, meta, "", analysis.AnalysisResult{Summary: "  "})
		Expect(texts(doc)).To(ContainElement("  "))
		Expect(texts(doc)).NotTo(ContainElement("No summary available."))
	})

	It("skips categories decoded from null or empty objects", func() {
		result := analysis.ParseResponse(`{"overall_score": 60, "categories": {
			"needs_discovery": null,
			"pain_point_exploration": {},
			"objection_handling": {"score": 7, "highlights": ["Handled price"]}
		}, "summary": "ok"}`)
		Expect(result.IsDegraded()).To(BeFalse())

		doc := report.Assemble(rubric, meta, "", result)
		nd, _ := rubric.Category(analysis.NeedsDiscovery)
		pp, _ := rubric.Category(analysis.PainPointExploration)
		oh, _ := rubric.Category(analysis.ObjectionHandling)
		Expect(texts(doc)).NotTo(ContainElement(nd.DisplayName()))
		Expect(texts(doc)).NotTo(ContainElement(pp.DisplayName()))
		Expect(texts(doc)).To(ContainElements(oh.DisplayName(), "Score: 7/10"))
		Expect(texts(doc)).NotTo(ContainElement("Score: 0/10"))
	})

	It("renders all six categories in display order for a degraded result", func() {
		doc := report.Assemble(rubric, meta, "", analysis.Degraded("garbage"))

		var subheadings []string
		for _, b := range doc.Blocks {
			if b.Kind == report.BlockHeading && b.Level == report.LevelSubsection {
				subheadings = append(subheadings, b.Text)
			}
		}
		want := make([]string, 0, 6)
		for _, c := range rubric.Categories() {
			want = append(want, c.DisplayName())
		}
		Expect(subheadings).To(Equal(want))
	})

	It("omits empty sub-sections", func() {
		result := analysis.AnalysisResult{Categories: map[analysis.CategoryKey]analysis.CategoryAnalysis{
			analysis.ObjectionHandling: {Score: 6},
		}}
		doc := report.Assemble(rubric, meta, "", result)
		Expect(texts(doc)).To(ContainElement("Score: 6/10"))
		Expect(texts(doc)).NotTo(ContainElement("What Went Well:"))
		Expect(texts(doc)).NotTo(ContainElement("Missed Opportunities:"))
		Expect(texts(doc)).NotTo(ContainElement("Actionable Feedback:"))
	})

	It("is idempotent", func() {
		result := analysis.Degraded("x")
		a := report.Assemble(rubric, meta, "line one\nline two", result)
		b := report.Assemble(rubric, meta, "line one\nline two", result)
		Expect(a).To(Equal(b))
	})
})

var _ = Describe("NewReportMail", func() {
	It("uses the fixed subject and template", func() {
		now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		m := report.NewReportMail("coach@example.com", "Discovery call", "reports/x.pdf", now)

		Expect(m.To).To(Equal("coach@example.com"))
		Expect(m.Subject).To(Equal("Sales Call Analysis Report - Discovery call"))
		Expect(m.Body).To(ContainSubstring("Meeting: Discovery call"))
		Expect(m.Body).To(ContainSubstring("Analysis Date: 2024-05-01 09:00:00"))
		Expect(m.AttachmentPath).To(Equal("reports/x.pdf"))
	})
})
