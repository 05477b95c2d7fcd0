package parser

import (
	"regexp"
)

// DefaultCodePattern matches a whole-word 6-digit number or a 6-8 character
// uppercase alphanumeric token
const DefaultCodePattern = `\b\d{6}\b|\b[A-Z0-9]{6,8}\b`

// CodeDetector detects verification codes in text
type CodeDetector struct {
	regex *regexp.Regexp
}

// NewCodeDetector creates a new code detector
func NewCodeDetector() *CodeDetector {
	return &CodeDetector{
		regex: regexp.MustCompile(DefaultCodePattern),
	}
}

// Detect returns the first code in document order
func (d *CodeDetector) Detect(text string) (string, bool) {
	loc := d.regex.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	return text[loc[0]:loc[1]], true
}
