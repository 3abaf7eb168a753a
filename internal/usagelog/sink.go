// Package usagelog records how conversations were answered and whether the
// answers helped. Writes are best-effort from the conversation's
// perspective: a failed record never blocks a reply.
package usagelog

import "context"

// Verdict is a helpfulness vote attached to a usage record.
type Verdict string

const (
	VerdictYes       Verdict = "Yes"
	VerdictNo        Verdict = "No"
	VerdictEscalated Verdict = "Escalated"
)

// Outcome status values recorded per interaction.
const (
	StatusSuccess          = "success"
	StatusNoMatch          = "no_match"
	StatusDeprecated       = "deprecated"
	StatusFetchFailed      = "fetch_failed"
	StatusGenerationFailed = "generation_failed"
)

// UsageRecord is one answered (or failed) interaction.
type UsageRecord struct {
	UserID      string
	Channel     string
	ThreadID    string
	Question    string
	ChosenTitle string
	StepFound   bool
	Status      string
	Answer      string
}

// Sink persists usage records and late-arriving helpfulness feedback.
type Sink interface {
	// RecordUsage writes one interaction and returns a correlation handle
	// for attaching feedback later.
	RecordUsage(ctx context.Context, rec *UsageRecord) (string, error)
	// RecordFeedback attaches a helpfulness verdict to a prior record.
	RecordFeedback(ctx context.Context, id string, verdict Verdict) error
}
