// Package steps splits an SOP body into its ordered instructional steps.
package steps

import (
	"regexp"
	"strings"

	"github.com/hyperjump/annai/internal/models"
)

// stepHeader matches a step marker line like "## Step 3" (case-insensitive).
var stepHeader = regexp.MustCompile(`(?i)^##\s*Step\s*\d+`)

// Parse splits body into an ordered, 1-indexed sequence of steps. A marker
// line starts a new step and flushes the previous one; everything before the
// first marker (or a whole body without markers) becomes a step with an
// empty header. Joining each step's header line and content reconstructs the
// original line sequence.
func Parse(body string) []models.Step {
	var (
		steps   []models.Step
		header  string
		content []string
	)

	for _, line := range strings.Split(body, "\n") {
		if stepHeader.MatchString(line) {
			if header != "" || len(content) > 0 {
				steps = append(steps, models.Step{Header: header, Content: strings.Join(content, "\n")})
			}
			header = line
			content = nil
			continue
		}
		content = append(content, line)
	}

	if header != "" || len(content) > 0 {
		steps = append(steps, models.Step{Header: header, Content: strings.Join(content, "\n")})
	}

	return steps
}

// Render flattens steps back into prompt text, one step per block.
func Render(parsed []models.Step) string {
	blocks := make([]string, 0, len(parsed))
	for _, s := range parsed {
		if s.Header == "" {
			blocks = append(blocks, s.Content)
			continue
		}
		blocks = append(blocks, s.Header+"\n"+s.Content)
	}
	return strings.Join(blocks, "\n\n")
}
