package orchestrator

import (
	"fmt"
	"strings"

	"github.com/hyperjump/annai/internal/models"
)

const (
	replyReset    = "Got it — starting fresh! What SOP do you want to ask about?"
	replyPaused   = "✅ Got it — I’ll step back. Say *resume* or mention me if you need more help."
	replyApology  = "Sorry, something went wrong while generating your answer. Please try again."
	helpfulPrompt = "Was this helpful?"
)

func replyResumed(title string) string {
	return fmt.Sprintf("🔄 Resumed. We were working on *%s*.", title)
}

func replyNextStep(title string, step int) string {
	return fmt.Sprintf("Next step for *%s* is Step %d.", title, step)
}

func replyPrevStep(title string, step int) string {
	return fmt.Sprintf("Previous step for *%s* is Step %d.", title, step)
}

func replyWhatStep(title string, step int) string {
	return fmt.Sprintf("Based on your last question, you are on Step %d of *%s*.", step, title)
}

func replyDeprecatedTerminal(title string) string {
	return fmt.Sprintf("⚠️ The top match SOP *%s* is deprecated, and no live related SOPs were found. Please check the SOP library for newer versions.", title)
}

// replyDeprecatedAlternatives warns that the best match is deprecated and
// lists the live runners-up as a numbered pick list.
func replyDeprecatedAlternatives(title string, alternatives []*models.RankedSOP) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ The top match SOP *%s* is deprecated. Here are live SOPs that may help instead:\n", title)
	for i, alt := range alternatives {
		fmt.Fprintf(&b, "%d. <%s|%s> (Status: %s, Score: %.1f)\n", i+1, alt.Document.Link, alt.Document.Title, alt.Document.Status, alt.Score)
	}
	b.WriteString("Reply with a new question to pick one up.")
	return b.String()
}

// statusNote returns an advisory footer for SOPs that exist but are not
// fully published yet. Recognition is by substring of the lowercased
// status, "update in-progress" checked before the broader "in-progress";
// any other status gets no note.
func statusNote(doc *models.SOPDocument) string {
	status := strings.ToLower(doc.Status)
	authorNote := ""
	if doc.Author != "" {
		authorNote = fmt.Sprintf(" Reach out to *%s* for any questions.", doc.Author)
	}
	switch {
	case strings.Contains(status, "update in-progress"):
		return fmt.Sprintf("> 📝 *Note:* This SOP’s *update is in progress* — contents may still change.%s", authorNote)
	case strings.Contains(status, "in-progress"):
		return fmt.Sprintf("> ⚠️ *Note:* This SOP is *still being written* and may not yet be finalized.%s", authorNote)
	case strings.Contains(status, "pending review"):
		return fmt.Sprintf("> 📝 *Note:* This SOP is *pending review* — details might be revised soon.%s", authorNote)
	default:
		return ""
	}
}

func feedbackAck(verdict string) string {
	switch verdict {
	case "yes":
		return "✅ Thanks for the feedback! Glad it helped."
	case "no":
		return "📝 Thanks for the feedback — we’ll use it to improve the SOPs."
	case "escalated":
		return "🚨 Noted — this has been flagged for escalation."
	default:
		return "Thanks for the feedback!"
	}
}
