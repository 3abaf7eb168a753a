package ranking

// Config holds the scoring weights for the relevance engine.
type Config struct {
	// TitleHitScore is added per query token that is a substring of a title token.
	TitleHitScore float64 `yaml:"title_hit_score"` // default: 25

	// BodyHitScore is added per query token found in the lowercased body.
	BodyHitScore float64 `yaml:"body_hit_score"` // default: 2
	// BodyHitCap caps how many query tokens may earn BodyHitScore.
	BodyHitCap int `yaml:"body_hit_cap"` // default: 2

	// TagExactScore is the per-token score for an exact tag match.
	TagExactScore float64 `yaml:"tag_exact_score"` // default: 3
	// TagPartialScore is the per-token score for a prefix/suffix tag match.
	TagPartialScore float64 `yaml:"tag_partial_score"` // default: 0.5
	// TagMultiplier scales the accumulated tag score before it joins the total.
	TagMultiplier float64 `yaml:"tag_multiplier"` // default: 10

	// MaxResults caps how many documents are returned.
	MaxResults int `yaml:"max_results"` // default: 3
}

// DefaultConfig returns the default scoring weights.
func DefaultConfig() *Config {
	return &Config{
		TitleHitScore:   25,
		BodyHitScore:    2,
		BodyHitCap:      2,
		TagExactScore:   3,
		TagPartialScore: 0.5,
		TagMultiplier:   10,
		MaxResults:      3,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.TitleHitScore == 0 {
		c.TitleHitScore = defaults.TitleHitScore
	}
	if c.BodyHitScore == 0 {
		c.BodyHitScore = defaults.BodyHitScore
	}
	if c.BodyHitCap == 0 {
		c.BodyHitCap = defaults.BodyHitCap
	}
	if c.TagExactScore == 0 {
		c.TagExactScore = defaults.TagExactScore
	}
	if c.TagPartialScore == 0 {
		c.TagPartialScore = defaults.TagPartialScore
	}
	if c.TagMultiplier == 0 {
		c.TagMultiplier = defaults.TagMultiplier
	}
	if c.MaxResults == 0 {
		c.MaxResults = defaults.MaxResults
	}
}
