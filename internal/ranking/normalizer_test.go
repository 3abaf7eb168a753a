package ranking

import (
	"reflect"
	"testing"
)

func TestNormalizer_QueryTokens(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "stop words and suffixes",
			query: "how do I offboard someone",
			want:  []string{"offboard"},
		},
		{
			name:  "punctuation stripped",
			query: "what is the VPN set-up?",
			want:  []string{"vpn", "setup"},
		},
		{
			name:  "pure stop words yield nothing",
			query: "how do I do it",
			want:  nil,
		},
		{
			name:  "empty query",
			query: "",
			want:  nil,
		},
		{
			name:  "punctuation only",
			query: "?!...",
			want:  nil,
		},
		{
			name:  "suffix priority ing before s",
			query: "offboarding laptops",
			want:  []string{"offboard", "laptop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.QueryTokens(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("QueryTokens(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestNormalizer_TitleTokens_KeepsStopWords(t *testing.T) {
	n := NewNormalizer()

	got := n.TitleTokens("How to Escalate an Incident")
	want := []string{"how", "to", "escalate", "an", "incident"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TitleTokens = %v, want %v", got, want)
	}
}

func TestStripSuffix(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"offboarding", "offboard"},
		{"updated", "updat"},
		{"expenses", "expens"},
		{"laptops", "laptop"},
		{"vpn", "vpn"},
		// only the first applicable suffix is stripped
		{"settings", "setting"},
		// never strip the whole token
		{"s", "s"},
		{"ed", "ed"},
		{"ing", "ing"},
	}

	for _, tt := range tests {
		if got := StripSuffix(tt.token); got != tt.want {
			t.Errorf("StripSuffix(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}
