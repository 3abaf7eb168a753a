package answer

import (
	"strings"
	"testing"

	"github.com/hyperjump/annai/internal/models"
)

func sop(title, link, body string) *models.SOPDocument {
	return &models.SOPDocument{Title: title, Link: link, Body: body}
}

func TestBuildTopLevelPrompt(t *testing.T) {
	docs := []*models.SOPDocument{
		sop("Offboarding Checklist", "https://example.com/off", "## Step 1\nCollect the laptop."),
		sop("Access Review", "https://example.com/acc", "## Step 1\nPull the report."),
	}

	prompt := BuildTopLevelPrompt("how do I offboard someone", docs)

	for _, want := range []string{
		"User question: how do I offboard someone",
		"Title: Offboarding Checklist",
		"<https://example.com/off|Offboarding Checklist>",
		"## Step 1\nCollect the laptop.",
		"Title: Access Review",
		NoMatchSentinel,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(prompt, "\n\n---\n\n") {
		t.Error("candidate blocks should be separated")
	}
}

func TestBuildFollowUpPrompt(t *testing.T) {
	doc := sop("Offboarding Checklist", "https://example.com/off", "## Step 2\nRevoke access.")
	prompt := BuildFollowUpPrompt("what about badges", doc)

	for _, want := range []string{
		`"Offboarding Checklist"`,
		"Use ONLY this SOP content",
		"User question: what about badges",
		"## Step 2\nRevoke access.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("follow-up prompt missing %q", want)
		}
	}
}

func TestCommittedTitle(t *testing.T) {
	candidates := []*models.SOPDocument{
		sop("Offboarding Checklist", "https://example.com/off", ""),
		sop("Access Review", "https://example.com/acc", ""),
	}

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "citation wins",
			reply: "Revoke access (Step 2). For more details and related links: <https://example.com/acc|Access Review>",
			want:  "Access Review",
		},
		{
			name:  "citation case-insensitive",
			reply: "See <https://example.com/acc|access review>.",
			want:  "Access Review",
		},
		{
			name:  "title mention without citation",
			reply: "Per the Access Review SOP, pull the report first.",
			want:  "Access Review",
		},
		{
			name:  "no recognizable title falls back to top candidate",
			reply: "Do the thing in Step 1.",
			want:  "Offboarding Checklist",
		},
		{
			name:  "citation with unknown title falls back to mention scan",
			reply: "For details: <https://other|Some Other Doc>",
			want:  "Offboarding Checklist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CommittedTitle(tt.reply, candidates)
			if got == nil || got.Title != tt.want {
				t.Errorf("CommittedTitle = %v, want %q", got, tt.want)
			}
		})
	}

	if CommittedTitle("anything", nil) != nil {
		t.Error("no candidates should yield nil")
	}
}

func TestIsNoMatch(t *testing.T) {
	if !IsNoMatch(NoMatchSentinel) {
		t.Error("sentinel should match itself")
	}
	if !IsNoMatch("I couldn't find an SOP that matches your question.") {
		t.Error("straight-quote variant should match")
	}
	if IsNoMatch("Here is your answer.") {
		t.Error("an answer is not a no-match")
	}
}
