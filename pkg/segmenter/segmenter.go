package segmenter

import (
	"regexp"
	"strings"
)

var lineBreakRE = regexp.MustCompile(`\r\n|\r`)

// Segment splits raw text into paragraphs, one per non-blank line. Each
// paragraph is trimmed and has internal whitespace runs (Unicode spaces
// included) collapsed to a single space. Source order is kept and lines are
// never merged.
func Segment(raw string) []string {
	normalized := lineBreakRE.ReplaceAllString(raw, "\n")

	paragraphs := make([]string, 0)
	for _, line := range strings.Split(normalized, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		paragraphs = append(paragraphs, line)
	}

	return paragraphs
}
