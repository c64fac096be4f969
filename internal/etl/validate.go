package etl

import "strings"

// blankTokens are textual values treated as missing after trimming and
// lower-casing.
var blankTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
	"nat":  {},
}

// IsValidRow reports whether every required field is present and non-blank.
// It stops at the first failing field.
func IsValidRow(rec Record, required []string) bool {
	for _, name := range required {
		if isBlank(rec.Get(name)) {
			return false
		}
	}
	return true
}

// MissingFields lists every required field that fails validation, in the
// order given.
func MissingFields(rec Record, required []string) []string {
	var missing []string
	for _, name := range required {
		if isBlank(rec.Get(name)) {
			missing = append(missing, name)
		}
	}
	return missing
}

func isBlank(v Value) bool {
	if v.IsMissing() {
		return true
	}
	if v.Kind != KindText {
		return false
	}
	_, blank := blankTokens[strings.ToLower(strings.TrimSpace(v.Text))]
	return blank
}
