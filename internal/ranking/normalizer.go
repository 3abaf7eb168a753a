package ranking

import (
	"strings"
	"unicode"
)

// stopWords are dropped from queries before matching: articles, pronouns,
// auxiliary verbs, question words, and a few connectives. Small tokens like
// "i" or "a" would otherwise match as substrings of almost any title.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"i": true, "me": true, "my": true, "we": true, "our": true,
	"you": true, "your": true, "he": true, "she": true, "it": true,
	"they": true, "them": true, "someone": true, "something": true,
	"is": true, "are": true, "was": true, "were": true, "am": true,
	"be": true, "been": true, "being": true,
	"do": true, "does": true, "did": true, "doing": true,
	"have": true, "has": true, "had": true,
	"can": true, "could": true, "should": true, "would": true,
	"will": true, "shall": true, "may": true, "might": true, "must": true,
	"how": true, "what": true, "when": true, "where": true,
	"who": true, "whom": true, "whose": true, "which": true, "why": true,
	"to": true, "of": true, "for": true, "in": true, "on": true,
	"and": true, "or": true, "if": true, "please": true,
}

// suffixes are stripped from tokens to approximate stemming, tried in this
// priority order; only the first applicable suffix is removed.
var suffixes = []string{"ing", "ed", "es", "s"}

// Normalizer turns free text into matchable tokens.
type Normalizer struct{}

// NewNormalizer returns a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// QueryTokens normalizes a query: lowercase, punctuation stripped, split on
// whitespace, stop words removed, suffix-stripped. An empty or pure-stop-word
// query yields an empty slice.
func (n *Normalizer) QueryTokens(query string) []string {
	var tokens []string
	for _, w := range strings.Fields(stripPunct(strings.ToLower(query))) {
		if stopWords[w] {
			continue
		}
		if t := StripSuffix(w); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// TitleTokens normalizes a title the same way as a query but without
// stop-word removal, so titles like "How to Escalate" keep all their words.
func (n *Normalizer) TitleTokens(title string) []string {
	var tokens []string
	for _, w := range strings.Fields(stripPunct(strings.ToLower(title))) {
		if t := StripSuffix(w); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// StripSuffix removes the first applicable trailing suffix ("ing", "ed",
// "es", "s") from a lowercased token. The token is returned unchanged when no
// suffix applies or stripping would consume the whole token.
func StripSuffix(token string) string {
	for _, suf := range suffixes {
		if len(token) > len(suf) && strings.HasSuffix(token, suf) {
			return token[:len(token)-len(suf)]
		}
	}
	return token
}

// stripPunct removes everything except letters, digits, underscore, and
// whitespace, mirroring a \W-class strip.
func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}
