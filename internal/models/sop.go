// Package models defines core data structures for SOP documents, steps, and sessions.
package models

import "strings"

// SOPDocument is one procedural document from the corpus.
// Title is the display key and is not guaranteed unique.
type SOPDocument struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Link   string   `json:"link"`
	Status string   `json:"status"`
	Author string   `json:"author,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// IsDeprecated reports whether the document's status marks it deprecated.
func (d *SOPDocument) IsDeprecated() bool {
	return strings.Contains(strings.ToLower(d.Status), "deprecated")
}

// Step is one numbered instructional unit inside a document body.
// Header is the "## Step N" marker line, or empty for material before the
// first marker (and for bodies with no markers at all).
type Step struct {
	Header  string `json:"header"`
	Content string `json:"content"`
}

// RankedSOP pairs a document with its relevance score.
type RankedSOP struct {
	Document *SOPDocument
	Score    float64
}

// NormalizeTags merges raw tag field values into a normalized tag set:
// split on comma/semicolon/pipe, lowercased, trimmed, de-duplicated,
// preserving first-seen order.
func NormalizeTags(raw ...string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, field := range raw {
		parts := strings.FieldsFunc(field, func(r rune) bool {
			return r == ',' || r == ';' || r == '|'
		})
		for _, p := range parts {
			tag := strings.ToLower(strings.TrimSpace(p))
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}
