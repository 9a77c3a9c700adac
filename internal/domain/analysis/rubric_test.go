package analysis_test

import (
	"github.com/bryanwahyu/callscore/internal/domain/analysis"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Rubric", func() {
	It("has six categories whose weights sum to 100", func() {
		r := analysis.DefaultRubric()
		Expect(r.Validate()).To(Succeed())

		sum := 0
		for _, c := range r.Categories() {
			sum += c.Weight
		}
		Expect(sum).To(Equal(analysis.TotalWeight))
		Expect(r.Keys()).To(Equal(analysis.AllKeys))
	})

	It("renders display names with the point allocation", func() {
		c, ok := analysis.DefaultRubric().Category(analysis.ConsequenceUrgency)
		Expect(ok).To(BeTrue())
		Expect(c.DisplayName()).To(Equal("Consequence & Urgency (15 pts)"))
	})

	It("rejects weights that do not sum to 100", func() {
		_, err := analysis.NewRubric("bad", []analysis.Category{
			{Key: analysis.NeedsDiscovery, Name: "Needs Discovery", Weight: 60},
			{Key: analysis.NextStepsClosing, Name: "Closing", Weight: 30},
		})
		Expect(err).To(MatchError(analysis.ErrRubricWeights))
	})

	It("rejects duplicate keys", func() {
		_, err := analysis.NewRubric("dup", []analysis.Category{
			{Key: analysis.NeedsDiscovery, Weight: 50},
			{Key: analysis.NeedsDiscovery, Weight: 50},
		})
		Expect(err).To(MatchError(analysis.ErrRubricDuplicate))
	})

	It("rejects an empty rubric", func() {
		_, err := analysis.NewRubric("empty", nil)
		Expect(err).To(MatchError(analysis.ErrRubricEmpty))
	})

	It("does not expose its internal slice", func() {
		r := analysis.DefaultRubric()
		cats := r.Categories()
		cats[0].Weight = 99
		Expect(r.Validate()).To(Succeed())
	})
})
