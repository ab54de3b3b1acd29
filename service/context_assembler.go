package service

import (
	"strconv"
	"strings"

	"github.com/tieubaoca/policy-assistant/types"
)

const (
	CITATION_DEFAULT_SECTION = "General"
	contextDelimiter         = "\n\n---\n\n"
)

// AssembleContext renders passages into the prompt context block. Block n
// corresponds to citation n, so passages must stay in retrieval order.
func AssembleContext(passages []types.Passage) string {
	blocks := make([]string, 0, len(passages))
	for i, p := range passages {
		var b strings.Builder
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] ")
		b.WriteString(passageLabel(p.Title, p.Section))
		b.WriteString("\nSource: ")
		b.WriteString(p.Source)
		b.WriteString("\n\n")
		b.WriteString(p.Text)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, contextDelimiter)
}

func passageLabel(title, section string) string {
	if section == "" {
		return title
	}
	return title + " - " + section
}

// MapCitations numbers passages 1..n in the order given.
func MapCitations(passages []types.Passage) []types.Citation {
	citations := make([]types.Citation, 0, len(passages))
	for i, p := range passages {
		c := types.Citation{
			ID:      i + 1,
			Title:   p.Title,
			Section: p.Section,
			Source:  p.Source,
		}
		if c.Section == "" {
			c.Section = CITATION_DEFAULT_SECTION
		}
		if p.URL != "" {
			url := p.URL
			c.URL = &url
		}
		citations = append(citations, c)
	}
	return citations
}
