package analysis

import (
	"encoding/json"
	"strings"
)

// ParseResponse extracts an AnalysisResult from a free-form model reply.
// It takes the text between the first '{' and the last '}' and decodes it
// as JSON; if there is no such span or decoding fails, it returns the
// degraded fallback. It never fails.
func ParseResponse(reply string) AnalysisResult {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || end < start {
		return Degraded(reply)
	}

	var out AnalysisResult
	if err := json.Unmarshal([]byte(reply[start:end+1]), &out); err != nil {
		return Degraded(reply)
	}
	return out
}
