package runerrors

import (
	"encoding/json"
	"strings"
)

// NormalizeDetails returns a value safe for a JSON column: "{}" when empty,
// the input when it is valid JSON, and {"raw": ...} otherwise.
func NormalizeDetails(details string) string {
	if strings.TrimSpace(details) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(details), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": details})
		return string(b)
	}
	return details
}

// DashIfEmpty keeps NOT NULL text columns non-blank.
func DashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
