package rag

import "strings"

// extractKeywords does simple keyword extraction from a question. Split on
// spaces, strip punctuation, filter short and stop words.
func extractKeywords(question string) []string {
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "is": true, "are": true,
		"was": true, "were": true, "be": true, "been": true, "being": true,
		"have": true, "has": true, "had": true, "do": true, "does": true,
		"did": true, "will": true, "would": true, "could": true, "should": true,
		"may": true, "might": true, "can": true, "shall": true, "to": true,
		"of": true, "in": true, "for": true, "on": true, "with": true,
		"at": true, "by": true, "from": true, "as": true, "into": true,
		"through": true, "during": true, "before": true, "after": true,
		"what": true, "where": true, "when": true, "how": true, "which": true,
		"who": true, "whom": true, "this": true, "that": true, "these": true,
		"those": true, "i": true, "me": true, "my": true, "it": true,
		"its": true, "and": true, "but": true, "or": true, "not": true,
		"about": true, "explain": true, "tell": true, "describe": true,
	}

	words := strings.Fields(strings.ToLower(question))
	var keywords []string
	for _, w := range words {
		w = strings.Trim(w, "?.,!;:'\"")
		if len(w) > 2 && !stopWords[w] {
			keywords = append(keywords, w)
		}
	}
	return keywords
}
