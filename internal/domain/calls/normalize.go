package calls

import (
	"fmt"
	"strings"
)

// NormalizedTranscript is the canonical line-oriented transcript text.
type NormalizedTranscript string

// Lines splits the transcript back into its lines.
func (n NormalizedTranscript) Lines() []string {
	if n == "" {
		return nil
	}
	return strings.Split(string(n), "\n")
}

func (n NormalizedTranscript) String() string { return string(n) }

// Normalize renders every turn as "[timestamp] speaker: text", one per line,
// in input order. Raw text transcripts are returned unchanged.
func Normalize(t *Transcript) NormalizedTranscript {
	if t == nil {
		return ""
	}
	if t.Kind != KindTurns {
		return NormalizedTranscript(t.Text)
	}

	lines := make([]string, 0, len(t.Turns))
	for _, e := range t.Turns {
		speaker := e.SpeakerName
		if speaker == "" {
			speaker = DefaultSpeaker
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", e.Timestamp, speaker, e.Text))
	}
	return NormalizedTranscript(strings.Join(lines, "\n"))
}
