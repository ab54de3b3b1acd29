package service

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var markupPattern = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(\s[^<>]*)?/?>|<!--`)

// cleanPassageText flattens chunk text that still carries markup from
// web-sourced ingestion and collapses whitespace runs. Text with a bare '<'
// (income<limit) is not markup and is kept as is.
func cleanPassageText(text string) string {
	if markupPattern.MatchString(text) || (strings.Contains(text, "&") && !strings.Contains(text, "<")) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			doc.Find("script, style").Remove()
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}
