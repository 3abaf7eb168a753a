package corpus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestCodaSource_FetchAllPaginated(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/docs/doc1/tables/tab1/rows", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Query().Get("useColumnNames") != "true" {
			t.Error("expected useColumnNames=true")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"values": map[string]any{
					"Title":              "Offboarding Checklist",
					"Content":            "## Step 1\nCollect the laptop.",
					"SOP Traceable Link": "https://example.com/offboarding",
					"Status":             "Live",
					"Author":             "Dana",
					"Tags Bot Result":    "Offboarding, HR; hr",
				}},
			},
			"nextPageLink": srv.URL + "/page2",
		})
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"values": map[string]any{
					"Content": "body only",
				}},
			},
		})
	})

	source := NewCodaSource("doc1", "tab1", "secret-token", WithCodaBaseURL(srv.URL))
	docs, err := source.FetchAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents across pages, got %d", len(docs))
	}

	first := docs[0]
	if first.Title != "Offboarding Checklist" || first.Author != "Dana" {
		t.Errorf("unexpected document %+v", first)
	}
	if !reflect.DeepEqual(first.Tags, []string{"offboarding", "hr"}) {
		t.Errorf("tags = %v, want [offboarding hr]", first.Tags)
	}

	// Missing title falls back to the placeholder.
	if docs[1].Title != "Untitled SOP" {
		t.Errorf("missing title = %q, want Untitled SOP", docs[1].Title)
	}
}

func TestCodaSource_FetchAllError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	source := NewCodaSource("doc1", "tab1", "token", WithCodaBaseURL(srv.URL))
	if _, err := source.FetchAll(context.Background()); err == nil {
		t.Error("expected error for non-200 response")
	}
}
