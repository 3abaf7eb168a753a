package ranking

import (
	"testing"

	"github.com/hyperjump/annai/internal/models"
)

func doc(title string, tags []string, body string) *models.SOPDocument {
	return &models.SOPDocument{Title: title, Tags: tags, Body: body}
}

func TestNewRanker(t *testing.T) {
	r := NewRanker(nil)
	if r == nil || r.Config() == nil {
		t.Fatal("expected ranker with default config")
	}
	if r.Config().TitleHitScore != 25 {
		t.Errorf("default TitleHitScore = %v, want 25", r.Config().TitleHitScore)
	}

	r = NewRanker(&Config{TitleHitScore: 50})
	if r.Config().TitleHitScore != 50 {
		t.Errorf("custom TitleHitScore = %v, want 50", r.Config().TitleHitScore)
	}
	if r.Config().BodyHitCap != 2 {
		t.Errorf("BodyHitCap default not applied, got %v", r.Config().BodyHitCap)
	}
}

func TestRanker_Gate(t *testing.T) {
	r := NewRanker(nil)

	// Body-only matches never surface a document.
	corpus := []*models.SOPDocument{
		doc("Printer Setup", nil, "mentions offboarding in passing, several times"),
	}
	if got := r.Rank(corpus, "how do I offboard someone"); len(got) != 0 {
		t.Errorf("body-only match passed the gate: %+v", got)
	}

	// An exact tag hit passes the gate even without a title hit.
	corpus = []*models.SOPDocument{
		doc("Equipment Return", []string{"offboard"}, ""),
	}
	got := r.Rank(corpus, "how do I offboard someone")
	if len(got) != 1 {
		t.Fatalf("exact tag hit should pass the gate, got %d results", len(got))
	}
	// +3 tag exact, times 10
	if got[0].Score != 30 {
		t.Errorf("tag-only score = %v, want 30", got[0].Score)
	}
}

func TestRanker_OffboardingScenario(t *testing.T) {
	r := NewRanker(nil)
	corpus := []*models.SOPDocument{
		doc("Offboarding Checklist", []string{"offboarding", "hr"}, "## Step 1\nCollect the laptop."),
		doc("Onboarding Guide", []string{"onboarding"}, "## Step 1\nOrder the laptop."),
	}

	got := r.Rank(corpus, "how do I offboard someone")
	if len(got) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(got))
	}
	if got[0].Document.Title != "Offboarding Checklist" {
		t.Errorf("top result = %q, want Offboarding Checklist", got[0].Document.Title)
	}
	if got[0].Score <= 0 {
		t.Errorf("score = %v, want > 0", got[0].Score)
	}
	// Normalizer detail: "offboarding" stays intact as a tag (tags are not
	// stemmed), so the stemmed query token "offboard" is a prefix match
	// (0.5*10), not an exact tag hit. Title hit adds 25.
	if got[0].Score != 25+5 {
		t.Errorf("score = %v, want 30 (title 25 + tag prefix 5)", got[0].Score)
	}
}

func TestRanker_ScoreWeights(t *testing.T) {
	r := NewRanker(nil)

	tests := []struct {
		name  string
		doc   *models.SOPDocument
		query string
		want  float64
	}{
		{
			name:  "title hit plus capped body hits",
			doc:   doc("VPN Access Setup", nil, "vpn access setup instructions"),
			query: "vpn access setup",
			// 3 title hits (75) + body hits capped at 2 (4)
			want: 79,
		},
		{
			name:  "exact tag hit",
			doc:   doc("Expense Policy", []string{"expense"}, ""),
			query: "expense report",
			// title hit 25 + exact tag 3*10
			want: 55,
		},
		{
			name:  "tag prefix hit",
			doc:   doc("Travel Booking", []string{"travels"}, ""),
			query: "travel",
			// title hit 25 + prefix/suffix tag 0.5*10
			want: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Rank([]*models.SOPDocument{tt.doc}, tt.query)
			if len(got) != 1 {
				t.Fatalf("expected 1 result, got %d", len(got))
			}
			if got[0].Score != tt.want {
				t.Errorf("score = %v, want %v", got[0].Score, tt.want)
			}
		})
	}
}

func TestRanker_EmptyInputs(t *testing.T) {
	r := NewRanker(nil)
	corpus := []*models.SOPDocument{doc("Offboarding Checklist", nil, "")}

	if got := r.Rank(nil, "offboarding"); len(got) != 0 {
		t.Error("empty corpus should rank to nothing")
	}
	if got := r.Rank(corpus, ""); len(got) != 0 {
		t.Error("empty query should rank to nothing")
	}
	if got := r.Rank(corpus, "how do I"); len(got) != 0 {
		t.Error("pure stop-word query should rank to nothing")
	}
	if got := r.Rank(corpus, "?!"); len(got) != 0 {
		t.Error("punctuation-only query should rank to nothing")
	}
}

func TestRanker_NoFallbackOnZeroScores(t *testing.T) {
	r := NewRanker(nil)
	corpus := []*models.SOPDocument{
		doc("Printer Setup", nil, ""),
		doc("Badge Access", nil, ""),
	}

	// No title or tag hit anywhere: strictly empty, never best-effort top 2.
	if got := r.Rank(corpus, "offboarding"); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestRanker_TopThreeAndTieOrder(t *testing.T) {
	r := NewRanker(nil)
	corpus := []*models.SOPDocument{
		doc("VPN Basics", nil, ""),
		doc("VPN Troubleshooting", nil, ""),
		doc("VPN for Contractors", nil, ""),
		doc("VPN Renewal", nil, ""),
	}

	got := r.Rank(corpus, "vpn")
	if len(got) != 3 {
		t.Fatalf("expected cap of 3 results, got %d", len(got))
	}
	// All four tie at 25+body 0; corpus order breaks ties.
	wantOrder := []string{"VPN Basics", "VPN Troubleshooting", "VPN for Contractors"}
	for i, w := range wantOrder {
		if got[i].Document.Title != w {
			t.Errorf("result[%d] = %q, want %q", i, got[i].Document.Title, w)
		}
	}
}

func TestRanker_Deterministic(t *testing.T) {
	r := NewRanker(nil)
	corpus := []*models.SOPDocument{
		doc("Offboarding Checklist", []string{"offboarding", "hr"}, "## Step 1\nCollect."),
		doc("Offboarding for Contractors", []string{"offboarding"}, ""),
		doc("Onboarding Guide", []string{"onboarding"}, ""),
	}

	first := r.Rank(corpus, "offboarding checklist")
	for i := 0; i < 10; i++ {
		again := r.Rank(corpus, "offboarding checklist")
		if len(again) != len(first) {
			t.Fatalf("run %d: length %d != %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j].Document.Title != first[j].Document.Title || again[j].Score != first[j].Score {
				t.Fatalf("run %d: result %d differs", i, j)
			}
		}
	}
}
