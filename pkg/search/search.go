package search

import (
	"strings"

	"golang.org/x/text/cases"
)

const maxQueryLength = 100

type Result struct {
	ParagraphIndex int    `json:"paragraphIndex"`
	Text           string `json:"text"`
}

// Search returns every paragraph containing query, ignoring case, in
// paragraph order. A blank query matches nothing.
func Search(paragraphs []string, query string) []Result {
	results := []Result{}

	query = SanitizeQuery(query)
	if query == "" {
		return results
	}

	fold := cases.Fold()
	needle := fold.String(query)
	for i, p := range paragraphs {
		if strings.Contains(fold.String(p), needle) {
			results = append(results, Result{ParagraphIndex: i, Text: p})
		}
	}
	return results
}

// SanitizeQuery trims the query and caps it at maxQueryLength runes.
func SanitizeQuery(input string) string {
	input = strings.TrimSpace(input)
	runes := []rune(input)
	if len(runes) > maxQueryLength {
		input = strings.TrimSpace(string(runes[:maxQueryLength]))
	}
	return input
}
