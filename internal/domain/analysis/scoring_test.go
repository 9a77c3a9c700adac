package analysis_test

import (
	"github.com/bryanwahyu/callscore/internal/domain/analysis"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func withScores(scores map[analysis.CategoryKey]int) analysis.AnalysisResult {
	cats := map[analysis.CategoryKey]analysis.CategoryAnalysis{}
	for k, s := range scores {
		cats[k] = analysis.CategoryAnalysis{Score: analysis.Score(s)}
	}
	return analysis.AnalysisResult{Categories: cats}
}

var _ = Describe("ComputeWeightedScore", func() {
	rubric := analysis.DefaultRubric()

	It("scales each category to its weight", func() {
		card := analysis.ComputeWeightedScore(rubric, withScores(map[analysis.CategoryKey]int{
			analysis.NeedsDiscovery:       8,
			analysis.PainPointExploration: 7,
			analysis.ConsequenceUrgency:   6,
			analysis.ObstacleHandling:     5,
			analysis.ObjectionHandling:    9,
			analysis.NextStepsClosing:     10,
		}))

		Expect(card.Rows).To(HaveLen(6))
		Expect(card.Rows[0].Key).To(Equal(analysis.NeedsDiscovery))
		Expect(card.Rows[0].DisplayName).To(Equal("Needs Discovery (25 pts)"))
		Expect(card.Rows[0].WeightedScore).To(Equal(20.0))
		Expect(card.Rows[1].WeightedScore).To(Equal(17.5))
		Expect(card.Rows[2].WeightedScore).To(Equal(9.0))
		Expect(card.Rows[3].WeightedScore).To(Equal(7.5))
		Expect(card.Rows[4].WeightedScore).To(Equal(9.0))
		Expect(card.Rows[5].WeightedScore).To(Equal(10.0))
		Expect(card.Total).To(Equal(73.0))
	})

	It("gives a perfect score the full 100 points", func() {
		scores := map[analysis.CategoryKey]int{}
		for _, k := range analysis.AllKeys {
			scores[k] = 10
		}
		Expect(analysis.ComputeWeightedScore(rubric, withScores(scores)).Total).To(Equal(100.0))
	})

	It("enumerates missing categories with a zero score", func() {
		card := analysis.ComputeWeightedScore(rubric, withScores(map[analysis.CategoryKey]int{
			analysis.NeedsDiscovery: 8,
		}))
		Expect(card.Rows).To(HaveLen(6))
		for _, row := range card.Rows[1:] {
			Expect(row.RawScore).To(Equal(0))
			Expect(row.WeightedScore).To(Equal(0.0))
		}
		Expect(card.Total).To(Equal(20.0))
	})

	It("handles the failed result with no categories", func() {
		card := analysis.ComputeWeightedScore(rubric, analysis.FailedResult(nil))
		Expect(card.Rows).To(HaveLen(6))
		Expect(card.Total).To(Equal(0.0))
	})

	It("ignores the model-reported overall score", func() {
		r := withScores(map[analysis.CategoryKey]int{analysis.NeedsDiscovery: 4})
		r.OverallScore = 99
		Expect(analysis.ComputeWeightedScore(rubric, r).Total).To(Equal(10.0))
	})

	It("is monotonic in every category", func() {
		base := map[analysis.CategoryKey]int{}
		for _, k := range analysis.AllKeys {
			base[k] = 5
		}
		for _, k := range analysis.AllKeys {
			prev := analysis.ComputeWeightedScore(rubric, withScores(base)).Total
			for s := 6; s <= 10; s++ {
				next := map[analysis.CategoryKey]int{}
				for kk, v := range base {
					next[kk] = v
				}
				next[k] = s
				total := analysis.ComputeWeightedScore(rubric, withScores(next)).Total
				Expect(total).To(BeNumerically(">=", prev))
				prev = total
			}
		}
	})

	It("scores the degraded result at 50", func() {
		Expect(analysis.ComputeWeightedScore(rubric, analysis.Degraded("x")).Total).To(Equal(50.0))
	})
})
