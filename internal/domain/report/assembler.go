package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/callscore/internal/domain/analysis"
)

const (
	ReportTitle        = "Sales Call Analysis Report"
	noSummary          = "No summary available."
	generatedAtLayout  = "2006-01-02 15:04:05"
	scoreTableCategory = "Category"
)

// Meta carries the meeting metadata printed at the top of the report.
type Meta struct {
	MeetingTitle string
	CreatedAt    string
	GeneratedAt  time.Time
}

// Assemble builds the report block sequence. It has no side effects and
// returns identical documents for identical inputs.
func Assemble(rubric analysis.Rubric, meta Meta, transcript string, result analysis.AnalysisResult) Document {
	card := analysis.ComputeWeightedScore(rubric, result)
	var b []Block

	b = append(b, title(ReportTitle))
	b = append(b, Block{Kind: BlockKeyValueTable, Rows: [][]string{
		{"Meeting Title:", meta.MeetingTitle},
		{"Date:", meta.CreatedAt},
		{"Overall Score:", fmt.Sprintf("%.1f/100", card.Total)},
		{"Reported Score:", fmt.Sprintf("%d/100", result.OverallScore)},
		{"Analysis Date:", meta.GeneratedAt.Format(generatedAtLayout)},
	}})

	b = append(b, heading(LevelSection, "Overall Performance Summary"))
	summary := result.Summary
	if summary == "" {
		summary = noSummary
	}
	b = append(b, paragraph(summary))
	if result.Failed() {
		b = append(b, paragraph("Analysis Error: "+result.Error))
	}

	b = append(b, heading(LevelSection, "Score Breakdown"))
	b = append(b, scoreTable(card))

	if p := result.Payment(); p != analysis.PaymentUnknown {
		b = append(b, heading(LevelSubsection, fmt.Sprintf("Payment Method Detected: %s", p)))
	}

	b = append(b, pageBreak())
	b = append(b, heading(LevelSection, "Detailed Category Analysis"))
	for _, c := range rubric.Categories() {
		ca, ok := result.Categories[c.Key]
		if !ok || ca.IsZero() {
			continue
		}
		b = append(b, heading(LevelSubsection, c.DisplayName()))
		b = append(b, paragraph(fmt.Sprintf("Score: %d/10", ca.Score)))
		b = appendSection(b, "What Went Well:", ca.Highlights)
		b = appendSection(b, "Missed Opportunities:", ca.MissedOpportunities)
		b = appendSection(b, "Actionable Feedback:", ca.Feedback)
	}

	b = append(b, pageBreak())
	b = append(b, heading(LevelSection, "Full Transcript"))
	for _, line := range strings.Split(transcript, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b = append(b, paragraph(line))
	}

	return Document{Blocks: b}
}

func scoreTable(card analysis.ScoreCard) Block {
	rows := make([][]string, 0, len(card.Rows)+2)
	rows = append(rows, []string{scoreTableCategory, "Score", "Weighted Score"})
	for _, r := range card.Rows {
		rows = append(rows, []string{
			r.DisplayName,
			fmt.Sprintf("%d/10", r.RawScore),
			fmt.Sprintf("%.1f/%d", r.WeightedScore, r.Weight),
		})
	}
	rows = append(rows, []string{"TOTAL", "", fmt.Sprintf("%.1f/%d", card.Total, analysis.TotalWeight)})
	return Block{Kind: BlockScoreTable, Rows: rows}
}

func appendSection(b []Block, label string, items []string) []Block {
	if len(items) == 0 {
		return b
	}
	return append(b, heading(LevelLabel, label), bullets(items))
}
