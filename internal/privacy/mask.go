package privacy

import (
	"strconv"
	"strings"
	"unicode"
)

const maskChar = '*'

// PreserveFormat masks every alphanumeric character except the first and
// last, leaving separators and punctuation in place. Values with two or fewer
// alphanumerics are masked completely.
func PreserveFormat(value string) string {
	runes := []rune(value)

	alnum := make([]int, 0, len(runes))
	for i, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum = append(alnum, i)
		}
	}

	if len(alnum) <= 2 {
		for _, i := range alnum {
			runes[i] = maskChar
		}
		return string(runes)
	}

	for _, i := range alnum[1 : len(alnum)-1] {
		runes[i] = maskChar
	}
	return string(runes)
}

// RenderPlaceholder expands {{TYPE}} and {{INDEX}} in a tag template
func RenderPlaceholder(template, category string, index int) string {
	if template == "" {
		template = DefaultPlaceholder
	}
	out := strings.ReplaceAll(template, "{{TYPE}}", category)
	return strings.ReplaceAll(out, "{{INDEX}}", strconv.Itoa(index))
}

// replacement builds the masked form of one match
func (r PatternRule) replacement(match string, index int) string {
	if r.Style == StylePreserve {
		// A masked value the rule would match again falls back to the tag.
		if masked := PreserveFormat(match); !r.Pattern.MatchString(masked) {
			return masked
		}
	}
	return RenderPlaceholder(r.Placeholder, r.Name, index)
}
