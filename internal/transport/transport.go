// Package transport carries messages to and from the chat service.
package transport

import "context"

// EventKind distinguishes the two inbound conversation events.
type EventKind int

const (
	// KindMention is a direct mention: always top-level handling.
	KindMention EventKind = iota
	// KindThreadMessage is a plain threaded message: follow-up, navigation,
	// pause, or resume only — never a fresh top-level query.
	KindThreadMessage
)

// Event is one inbound conversation event, already stripped of transport
// framing (mention tags removed, bot messages filtered out).
type Event struct {
	Kind     EventKind
	UserID   string
	Channel  string
	ThreadTS string
	Text     string
}

// FeedbackAction is an out-of-band helpfulness vote from an interactive
// component. Value carries the usage-log correlation handle embedded in the
// button payload; Channel and MessageTS identify the prompt message so it
// can be edited to acknowledge the vote.
type FeedbackAction struct {
	UserID    string
	Channel   string
	MessageTS string
	ActionID  string
	Value     string
}

// Block is one Block Kit element of an outbound message.
type Block map[string]any

// Chat posts and edits messages. Implementations do not retry; delivery
// semantics belong to the transport service.
type Chat interface {
	// PostMessage sends text (and optional blocks) into a channel/thread
	// and returns the posted message's timestamp.
	PostMessage(ctx context.Context, channel, threadTS, text string, blocks []Block) (string, error)
	// UpdateMessage replaces the text of an existing message.
	UpdateMessage(ctx context.Context, channel, ts, text string) error
}

// Feedback button action IDs.
const (
	ActionFeedbackYes      = "feedback_yes"
	ActionFeedbackNo       = "feedback_no"
	ActionFeedbackEscalate = "feedback_escalate"
)

// FeedbackBlocks builds the "was this helpful?" affordance. payload travels
// back in the button value so the vote can be attributed after the
// conversational window closes.
func FeedbackBlocks(prompt, payload string) []Block {
	button := func(text, actionID string) map[string]any {
		return map[string]any{
			"type":      "button",
			"action_id": actionID,
			"value":     payload,
			"text":      map[string]any{"type": "plain_text", "text": text},
		}
	}
	return []Block{
		{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": prompt},
		},
		{
			"type": "actions",
			"elements": []map[string]any{
				button("👍 Yes", ActionFeedbackYes),
				button("👎 No", ActionFeedbackNo),
				button("🚨 Escalate", ActionFeedbackEscalate),
			},
		},
	}
}
