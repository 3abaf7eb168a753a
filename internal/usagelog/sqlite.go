package usagelog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/annai/pkg/utils"
)

// maxStoredAnswerLen caps stored answer text so one runaway generation
// cannot bloat the log.
const maxStoredAnswerLen = 4000

// SQLiteSink implements Sink on a local SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_log (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		channel TEXT,
		thread_id TEXT,
		question TEXT,
		chosen_title TEXT,
		step_found INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		answer TEXT,
		helpful TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		feedback_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_usage_log_user ON usage_log(user_id);
	CREATE INDEX IF NOT EXISTS idx_usage_log_created_at ON usage_log(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordUsage implements Sink.
func (s *SQLiteSink) RecordUsage(ctx context.Context, rec *UsageRecord) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_log (id, user_id, channel, thread_id, question, chosen_title, step_found, status, answer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.UserID, rec.Channel, rec.ThreadID, rec.Question, rec.ChosenTitle,
		boolToInt(rec.StepFound), rec.Status, utils.Truncate(rec.Answer, maxStoredAnswerLen),
	)
	if err != nil {
		return "", fmt.Errorf("insert usage record: %w", err)
	}
	return id, nil
}

// RecordFeedback implements Sink.
func (s *SQLiteSink) RecordFeedback(ctx context.Context, id string, verdict Verdict) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE usage_log SET helpful = ?, feedback_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(verdict), id,
	)
	if err != nil {
		return fmt.Errorf("update usage record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("usage record %s not found", id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
