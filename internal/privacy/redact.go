package privacy

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

var fillerPattern = regexp.MustCompile(`(?i)\b(?:um+|hmm+|uh+|ah+|erm+)\b`)

type redactOptions struct {
	blankFillers bool
}

// Option changes how Redact scans text
type Option func(*redactOptions)

// WithFillerBlanking hides filler words ("um", "uh", ...) from the rules.
// Fillers are replaced by spaces of the same length before matching, so
// offsets still refer to the original text and the fillers stay in the output.
func WithFillerBlanking() Option {
	return func(o *redactOptions) {
		o.blankFillers = true
	}
}

// BlankFillers replaces filler words with spaces of equal length
func BlankFillers(text string) string {
	return fillerPattern.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

// Redact finds PII in text using the rules of reg and masks it. Earlier
// rules claim text first; a later match touching a claimed span is dropped.
// Redact never fails and does not modify reg.
func Redact(text string, reg *Registry, opts ...Option) Outcome {
	var o redactOptions
	for _, opt := range opts {
		opt(&o)
	}

	began := time.Now()

	scan := text
	if o.blankFillers {
		scan = BlankFillers(text)
	}

	type claim struct {
		rule  int
		start int
		end   int
	}

	var claimed SpanSet
	var claims []claim
	rules := reg.Rules()

	for i, rule := range rules {
		locs := rule.Pattern.FindAllStringIndex(scan, -1)
		for len(locs) > 0 {
			start, end := locs[0][0], locs[0][1]
			locs = locs[1:]

			if start == end || claimed.Overlaps(start, end) {
				continue
			}
			if rule.Validate != nil && !rule.Validate(text[start:end]) {
				// A rejected candidate claims nothing, so a valid match may
				// still start inside it.
				locs = findAllFrom(rule.Pattern, scan, nextWordStart(scan, start))
				continue
			}

			claimed.Claim(start, end)
			claims = append(claims, claim{rule: i, start: start, end: end})
		}
	}

	sort.Slice(claims, func(a, b int) bool {
		return claims[a].start < claims[b].start
	})

	detections := make([]Detection, 0, len(claims))
	occurrences := make(map[string]int)

	var masked strings.Builder
	masked.Grow(len(text))
	cursor := 0

	for _, c := range claims {
		rule := rules[c.rule]
		original := text[c.start:c.end]
		occurrences[rule.Name]++

		replacement := rule.replacement(original, occurrences[rule.Name])
		detections = append(detections, Detection{
			Category:     rule.Name,
			OriginalText: original,
			Start:        c.start,
			End:          c.end,
			Replacement:  replacement,
		})

		masked.WriteString(text[cursor:c.start])
		masked.WriteString(replacement)
		cursor = c.end
	}
	masked.WriteString(text[cursor:])

	return Outcome{
		MaskedText: masked.String(),
		Detections: detections,
		LatencyMS:  float64(time.Since(began).Nanoseconds()) / 1e6,
	}
}

// findAllFrom returns the matches of pattern in s that start at or after
// from, as offsets into s
func findAllFrom(pattern *regexp.Regexp, s string, from int) [][]int {
	if from > len(s) {
		return nil
	}
	locs := pattern.FindAllStringIndex(s[from:], -1)
	for _, loc := range locs {
		loc[0] += from
		loc[1] += from
	}
	return locs
}

// nextWordStart returns the first offset after i that does not split a word.
// Rescanning from such an offset keeps \b anchors meaning what they mean in
// the full text.
func nextWordStart(s string, i int) int {
	_, size := utf8.DecodeRuneInString(s[i:])
	i += size
	for i < len(s) && isWordByte(s[i-1]) && isWordByte(s[i]) {
		i++
	}
	return i
}

func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}
