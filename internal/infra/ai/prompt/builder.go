package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/callscore/internal/domain/ai"
	"github.com/bryanwahyu/callscore/internal/domain/analysis"
)

// Builder renders the evaluation instruction from a rubric.
// The instruction is computed once so every call sends identical bytes.
type Builder struct {
	rubric      analysis.Rubric
	instruction string
}

func NewBuilder(rubric analysis.Rubric) *Builder {
	return &Builder{rubric: rubric, instruction: renderInstruction(rubric)}
}

func (b *Builder) Rubric() analysis.Rubric { return b.rubric }

// Instruction returns the system prompt.
func (b *Builder) Instruction() string { return b.instruction }

// Build pairs the instruction with the transcript payload. The transcript is
// embedded verbatim; size limits belong to the transport.
func (b *Builder) Build(transcript string) ai.Request {
	return ai.Request{
		Instruction: b.instruction,
		Payload:     GetUserPrompt(transcript),
	}
}

// GetUserPrompt wraps the transcript in the per-call message.
func GetUserPrompt(transcript string) string {
	return fmt.Sprintf(`Please analyze this fitness coaching sales call transcript:

%s

Provide a detailed analysis following the scoring rubric and return the results in the specified JSON format.`, transcript)
}

const instructionHeader = `You are a sales coaching expert specializing in fitness coaching. Your task is to analyze a transcript of a sales call and evaluate the coach's performance based on a provided sales framework and scoring rubric. Your analysis should be objective, insightful, and actionable.

The coach follows this sales framework:
- Where are they now?: Understand current situation
- Clarify & Label: Clarify issues and label them
- Overview Past Experiences: Discuss past attempts and what worked/didn't
- Sell the Vacation: Paint a picture of the desired outcome
- Explain away their concerns: Address potential obstacles
- Reinforce their decision: Reassure them after they commit
`

func renderInstruction(r analysis.Rubric) string {
	var sb strings.Builder
	sb.WriteString(instructionHeader)
	fmt.Fprintf(&sb, "\nRubric version: %s\n", r.Version())

	sb.WriteString("\nScoring Categories (weights):\n")
	for _, c := range r.Categories() {
		fmt.Fprintf(&sb, "- %s (%d points) [key: %s]: %s\n", c.Name, c.Weight, c.Key, c.Description)
	}

	sb.WriteString(`
For each category, provide:
1. Score (1-10)
2. Conversation highlights (what went well)
3. Missed opportunities (what could be improved)
4. Actionable feedback (specific suggestions)

Also detect if a payment method was mentioned (PIF/Pay In Full, split pay, monthly payments) and factor this into the `)
	if c, ok := r.Category(analysis.NextStepsClosing); ok {
		sb.WriteString(c.Name)
	} else {
		sb.WriteString("closing")
	}
	fmt.Fprintf(&sb, ` score. Set payment_detected to one of "%s", "%s", "%s" or "%s".

Return exactly one JSON object (no markdown, no commentary) with this structure:
`, analysis.PaymentInFull, analysis.PaymentSplit, analysis.PaymentMonthly, analysis.PaymentUnknown)
	sb.WriteString(schemaExample(r))
	return sb.String()
}

// schemaExample lists every rubric key so the model returns all of them.
func schemaExample(r analysis.Rubric) string {
	var sb strings.Builder
	sb.WriteString("{\n  \"overall_score\": 85,\n  \"categories\": {\n")
	keys := r.Keys()
	for i, k := range keys {
		fmt.Fprintf(&sb, `    "%s": {
      "score": 8,
      "highlights": ["Specific examples..."],
      "missed_opportunities": ["Specific examples..."],
      "feedback": ["Specific suggestions..."]
    }`, k)
		if i < len(keys)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  },\n  \"payment_detected\": \"PIF\",\n  \"summary\": \"Overall assessment of the call...\"\n}")
	return sb.String()
}
