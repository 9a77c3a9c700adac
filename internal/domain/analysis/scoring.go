package analysis

import "math"

// WeightedScoreRow is one line of the score breakdown.
type WeightedScoreRow struct {
	Key           CategoryKey
	DisplayName   string
	RawScore      int
	Weight        int
	WeightedScore float64
}

// ScoreCard is the derived breakdown plus its total, rounded to one decimal.
type ScoreCard struct {
	Rows  []WeightedScoreRow
	Total float64
}

// ComputeWeightedScore scales each category's 1-10 score to its weight and
// sums them. Missing categories still get a row with a raw score of 0.
// The model-reported overall score is not used.
func ComputeWeightedScore(rubric Rubric, result AnalysisResult) ScoreCard {
	cats := rubric.Categories()
	card := ScoreCard{Rows: make([]WeightedScoreRow, 0, len(cats))}

	var total float64
	for _, c := range cats {
		raw := 0
		if ca, ok := result.Categories[c.Key]; ok {
			raw = int(ca.Score)
		}
		weighted := float64(raw*c.Weight) / 10
		total += weighted
		card.Rows = append(card.Rows, WeightedScoreRow{
			Key:           c.Key,
			DisplayName:   c.DisplayName(),
			RawScore:      raw,
			Weight:        c.Weight,
			WeightedScore: weighted,
		})
	}
	card.Total = roundTenth(total)
	return card
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
