package calls

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	DefaultMeetingTitle = "Unknown Meeting"
	DefaultSpeaker      = "Unknown"
)

// TranscriptEntry satu giliran bicara dari event
type TranscriptEntry struct {
	SpeakerName string `json:"speaker_name"`
	Text        string `json:"text"`
	Timestamp   string `json:"timestamp"`
}

// TranscriptKind tag untuk variant Transcript
type TranscriptKind string

const (
	KindTurns TranscriptKind = "turns"
	KindText  TranscriptKind = "text"
)

// Transcript is either a list of speaker turns or a raw text block.
// The variant is resolved once while decoding the inbound event.
type Transcript struct {
	Kind  TranscriptKind
	Turns []TranscriptEntry
	Text  string
}

// TurnsTranscript builds the list variant.
func TurnsTranscript(turns ...TranscriptEntry) *Transcript {
	return &Transcript{Kind: KindTurns, Turns: turns}
}

// TextTranscript builds the raw text variant.
func TextTranscript(text string) *Transcript {
	return &Transcript{Kind: KindText, Text: text}
}

// Empty reports whether there is nothing to analyze.
func (t *Transcript) Empty() bool {
	if t == nil {
		return true
	}
	switch t.Kind {
	case KindTurns:
		return len(t.Turns) == 0
	default:
		return t.Text == ""
	}
}

// UnmarshalJSON accepts an array of turn records or any scalar.
// Malformed turn fields fall back to defaults instead of failing the event.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		turns := make([]TranscriptEntry, 0, len(raw))
		for _, r := range raw {
			turns = append(turns, decodeTurn(r))
		}
		*t = Transcript{Kind: KindTurns, Turns: turns}
		return nil
	}
	*t = Transcript{Kind: KindText, Text: scalarString(data)}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON so the event can be re-encoded.
func (t Transcript) MarshalJSON() ([]byte, error) {
	if t.Kind != KindTurns {
		return json.Marshal(t.Text)
	}
	type speaker struct {
		DisplayName string `json:"display_name"`
	}
	type turn struct {
		Speaker   speaker `json:"speaker"`
		Text      string  `json:"text"`
		Timestamp string  `json:"timestamp"`
	}
	out := make([]turn, 0, len(t.Turns))
	for _, e := range t.Turns {
		out = append(out, turn{Speaker: speaker{DisplayName: e.SpeakerName}, Text: e.Text, Timestamp: e.Timestamp})
	}
	return json.Marshal(out)
}

func decodeTurn(raw json.RawMessage) TranscriptEntry {
	entry := TranscriptEntry{SpeakerName: DefaultSpeaker}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return entry
	}

	if sp, ok := fields["speaker"]; ok {
		var speaker map[string]json.RawMessage
		if json.Unmarshal(sp, &speaker) == nil {
			name, ok := speaker["display_name"]
			if !ok {
				name, ok = speaker["displayName"]
			}
			if ok && !isNull(name) {
				entry.SpeakerName = scalarString(name)
			}
		}
	}
	if v, ok := fields["text"]; ok {
		entry.Text = scalarString(v)
	}
	if v, ok := fields["timestamp"]; ok {
		entry.Timestamp = scalarString(v)
	}
	return entry
}

// scalarString coerces a JSON value to text: strings are unquoted,
// null becomes empty, anything else keeps its literal JSON form.
func scalarString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func isNull(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// CallEvent is the payload produced by the ingress for a finished call.
type CallEvent struct {
	MeetingTitle string      `json:"meeting_title"`
	CreatedAt    string      `json:"created_at"`
	Transcript   *Transcript `json:"transcript,omitempty"`
}

// HasTranscript reports whether the event should start a pipeline run.
func (e CallEvent) HasTranscript() bool {
	return !e.Transcript.Empty()
}
