// Package ranking scores SOP documents against free-text queries.
//
// The engine is a pure function of (corpus, query): no index, no corpus
// statistics, no learned weights. A document only scores at all when the
// query hits its title or tags (the gate); body matches alone never surface
// a document.
package ranking

import (
	"sort"
	"strings"

	"github.com/hyperjump/annai/internal/models"
)

// Ranker ranks SOP documents by relevance to a query.
type Ranker struct {
	config     *Config
	normalizer *Normalizer
}

// NewRanker creates a Ranker with the given configuration.
func NewRanker(config *Config) *Ranker {
	if config == nil {
		config = DefaultConfig()
	}
	config.ApplyDefaults()

	return &Ranker{
		config:     config,
		normalizer: NewNormalizer(),
	}
}

// Rank scores every document in the corpus against the query and returns at
// most MaxResults documents with positive score, highest first. Ties keep
// corpus order. An empty query (or one reduced to nothing by the stop-word
// filter) and an empty corpus both yield an empty result.
func (r *Ranker) Rank(corpus []*models.SOPDocument, query string) []*models.RankedSOP {
	results := r.RankAll(corpus, query)
	if len(results) > r.config.MaxResults {
		results = results[:r.config.MaxResults]
	}
	return results
}

// RankAll is Rank without the MaxResults cap, used when a broader pool of
// live alternatives is needed (e.g. all top candidates are deprecated).
func (r *Ranker) RankAll(corpus []*models.SOPDocument, query string) []*models.RankedSOP {
	tokens := r.normalizer.QueryTokens(query)
	if len(tokens) == 0 {
		return nil
	}

	var results []*models.RankedSOP
	for _, doc := range corpus {
		if score := r.Score(doc, tokens); score > 0 {
			results = append(results, &models.RankedSOP{Document: doc, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Score computes the relevance score of one document for pre-normalized
// query tokens. Documents failing the title/tag gate score zero.
func (r *Ranker) Score(doc *models.SOPDocument, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}

	titleTokens := r.normalizer.TitleTokens(doc.Title)
	tags := doc.Tags
	body := strings.ToLower(doc.Body)

	if !passesGate(tokens, titleTokens, tags) {
		return 0
	}

	var score float64

	for _, tok := range tokens {
		for _, tt := range titleTokens {
			if strings.Contains(tt, tok) {
				score += r.config.TitleHitScore
				break
			}
		}
	}

	bodyHits := 0
	for _, tok := range tokens {
		if bodyHits >= r.config.BodyHitCap {
			break
		}
		if strings.Contains(body, tok) {
			bodyHits++
		}
	}
	score += float64(bodyHits) * r.config.BodyHitScore

	var tagScore float64
	for _, tok := range tokens {
		for _, tag := range tags {
			switch {
			case tag == tok:
				tagScore += r.config.TagExactScore
			case strings.HasPrefix(tag, tok) || strings.HasPrefix(tok, tag):
				tagScore += r.config.TagPartialScore
			}
		}
	}
	score += tagScore * r.config.TagMultiplier

	return score
}

// passesGate reports whether at least one query token hits a title token
// (equal or substring) or exactly equals a tag.
func passesGate(tokens, titleTokens, tags []string) bool {
	for _, tok := range tokens {
		for _, tt := range titleTokens {
			if strings.Contains(tt, tok) {
				return true
			}
		}
		for _, tag := range tags {
			if tag == tok {
				return true
			}
		}
	}
	return false
}

// Config returns the ranker's configuration.
func (r *Ranker) Config() *Config {
	return r.config
}
