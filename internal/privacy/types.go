package privacy

import "regexp"

// MaskStyle selects how a matched value is replaced
type MaskStyle string

const (
	// StyleTag replaces the match with the rendered placeholder
	StyleTag MaskStyle = "tag"
	// StylePreserve keeps separators and the first and last alphanumeric
	StylePreserve MaskStyle = "preserve"
)

// DefaultPlaceholder is used by tag rules that do not set their own
const DefaultPlaceholder = "[{{TYPE}}_REDACTED]"

// PatternRule represents a single named PII detection rule
type PatternRule struct {
	Name        string
	Pattern     *regexp.Regexp
	Placeholder string
	Style       MaskStyle
	// Validate rejects matches that look right but are not PII (e.g. Luhn).
	Validate func(string) bool
}

// RuleDef is the declarative form of a rule, as found in config files
type RuleDef struct {
	Name        string
	Pattern     string
	Placeholder string
	Style       string
}

// Detection is one accepted match in the source text
type Detection struct {
	Category     string `json:"category"`
	OriginalText string `json:"-"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
	Replacement  string `json:"replacement"`
}

// Outcome contains the result of redacting one text
type Outcome struct {
	MaskedText string      `json:"maskedText"`
	Detections []Detection `json:"detections"`
	LatencyMS  float64     `json:"latencyMs"`
}

// CountByCategory returns the number of detections per category
func (o Outcome) CountByCategory() map[string]int {
	counts := make(map[string]int)
	for _, d := range o.Detections {
		counts[d.Category]++
	}
	return counts
}
