package usagelog

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSink(t *testing.T) *SQLiteSink {
	t.Helper()
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestSQLiteSink_RecordUsage(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	id, err := sink.RecordUsage(ctx, &UsageRecord{
		UserID:      "U1",
		Channel:     "C1",
		ThreadID:    "T1",
		Question:    "how do I offboard someone",
		ChosenTitle: "Offboarding Checklist",
		StepFound:   true,
		Status:      StatusSuccess,
		Answer:      "Collect the laptop (Step 1).",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected a correlation handle")
	}

	var gotTitle, gotStatus string
	var gotStep int
	err = sink.db.QueryRowContext(ctx,
		"SELECT chosen_title, status, step_found FROM usage_log WHERE id = ?", id,
	).Scan(&gotTitle, &gotStatus, &gotStep)
	if err != nil {
		t.Fatal(err)
	}
	if gotTitle != "Offboarding Checklist" || gotStatus != StatusSuccess || gotStep != 1 {
		t.Errorf("stored row = (%q, %q, %d)", gotTitle, gotStatus, gotStep)
	}
}

func TestSQLiteSink_RecordFeedback(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	id, err := sink.RecordUsage(ctx, &UsageRecord{UserID: "U1", Status: StatusSuccess})
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.RecordFeedback(ctx, id, VerdictYes); err != nil {
		t.Fatal(err)
	}

	var helpful string
	if err := sink.db.QueryRowContext(ctx,
		"SELECT helpful FROM usage_log WHERE id = ?", id).Scan(&helpful); err != nil {
		t.Fatal(err)
	}
	if helpful != "Yes" {
		t.Errorf("helpful = %q, want Yes", helpful)
	}
}

func TestSQLiteSink_FeedbackUnknownID(t *testing.T) {
	sink := newTestSink(t)
	if err := sink.RecordFeedback(context.Background(), "missing", VerdictNo); err == nil {
		t.Error("feedback for an unknown record should error")
	}
}
