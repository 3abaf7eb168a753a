package answer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/annai/internal/models"
	"github.com/hyperjump/annai/internal/steps"
)

// NoMatchSentinel is the exact string the generator is instructed to reply
// with when no SOP or step answers the question.
const NoMatchSentinel = "I couldn’t find an SOP that matches your question."

// BuildTopLevelPrompt builds the prompt for a fresh query over the live
// candidate SOPs.
func BuildTopLevelPrompt(query string, candidates []*models.SOPDocument) string {
	var b strings.Builder
	b.WriteString(`You are a helpful support assistant for SOPs. Use the SOPs below as your knowledge base.

Rules:
1. First, identify the ONE SOP that best matches the user's question (use the title + content).
2. Then, find the SINGLE most relevant step (or sub-steps) inside that SOP, make sure it is relevant to the question asked and include the step number in the message.
3. Answer ONLY from that step. Do NOT include unrelated steps, summaries, or introductions.
4. Paraphrase concisely in instructional style, second person ("you"), with clear action verbs.
5. Always add one insight:
   - 💡 Tip (efficiency)
   - ⚠️ Warning (risk)
   - 📝 Note (context)
6. End with: "For more details and related links: <SOP URL|SOP Title>". Slack only supports <URL|Title> format. Always use this.
7. If no SOP or step matches, respond: "` + NoMatchSentinel + `"

User question: ` + query + "\n\nHere are all the SOPs:\n")
	b.WriteString(renderContexts(candidates))
	return b.String()
}

// BuildFollowUpPrompt builds the prompt for a follow-up question about the
// one locked SOP. The generator is instructed to answer strictly from it.
func BuildFollowUpPrompt(query string, doc *models.SOPDocument) string {
	return fmt.Sprintf(`You are a helpful support assistant for SOPs.
The user is asking a follow-up question about: %q.

Use ONLY this SOP content. Answer strictly using the most relevant step.

User question: %s

SOP Content:
%s`, doc.Title, query, renderContexts([]*models.SOPDocument{doc}))
}

// renderContexts flattens candidate SOPs into prompt text, one block per
// document, steps rendered in order.
func renderContexts(docs []*models.SOPDocument) string {
	blocks := make([]string, 0, len(docs))
	for _, d := range docs {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nLink: <%s|%s>\n%s",
			d.Title, d.Link, d.Title, steps.Render(steps.Parse(d.Body))))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// citation matches a Slack-format <URL|Title> link in a generated reply.
var citation = regexp.MustCompile(`<[^|>]+\|([^>]+)>`)

// CommittedTitle recovers which candidate document the generator committed
// to from its formatted reply. The reply's <URL|Title> citation is matched
// against candidate titles, then the reply text is scanned for a title
// mention, and when both fail the top-ranked candidate is assumed.
func CommittedTitle(reply string, candidates []*models.SOPDocument) *models.SOPDocument {
	if len(candidates) == 0 {
		return nil
	}

	for _, m := range citation.FindAllStringSubmatch(reply, -1) {
		cited := strings.TrimSpace(m[1])
		for _, d := range candidates {
			if strings.EqualFold(cited, d.Title) {
				return d
			}
		}
	}

	lower := strings.ToLower(reply)
	for _, d := range candidates {
		if d.Title != "" && strings.Contains(lower, strings.ToLower(d.Title)) {
			return d
		}
	}

	return candidates[0]
}

// IsNoMatch reports whether the reply is the no-match sentinel. Straight
// quotes are tolerated since models rewrite the apostrophe freely.
func IsNoMatch(reply string) bool {
	norm := func(s string) string {
		s = strings.ReplaceAll(s, "’", "'")
		return strings.TrimSpace(strings.ToLower(s))
	}
	return norm(reply) == norm(NoMatchSentinel)
}
