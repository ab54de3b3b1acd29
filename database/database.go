package database

import (
	"context"
	"regexp"
	"strings"

	"github.com/tieubaoca/policy-assistant/types"
)

// LexicalIndex is the read-only ranked lookup over chunks of completed
// documents. Implementations rank by a best-match relevance score where
// higher is more relevant, and return an empty slice when nothing matches.
type LexicalIndex interface {
	Search(ctx context.Context, query string, limit int) ([]types.Passage, error)
}

var termExpr = regexp.MustCompile(`[\p{L}\p{N}]+`)

// searchTerms splits a query into lowercase word tokens, dropping duplicates
// and everything that is not a letter or digit.
func searchTerms(query string) []string {
	seen := make(map[string]struct{})
	terms := make([]string, 0)
	for _, t := range termExpr.FindAllString(strings.ToLower(query), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}
