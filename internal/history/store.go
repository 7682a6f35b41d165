package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"audio-transcriptor/internal/domain"
)

// Run is one recorded batch invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Files      int
	Words      int
	Seconds    int
}

// JournalEntry is one persisted run-journal event.
type JournalEntry struct {
	Seq     int64
	Type    string
	File    string
	Message string
	At      time.Time
}

// Store keeps batch run history in a local SQLite database.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

// Open creates the database (and parent directory) when missing.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if s.log != nil {
		s.log.Debug("history store ready", "path", path)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    files INTEGER NOT NULL DEFAULT 0,
    words INTEGER NOT NULL DEFAULT 0,
    seconds INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS transcripts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    words INTEGER NOT NULL,
    seconds INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS journal (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    file_name TEXT,
    message TEXT,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_transcripts_run ON transcripts(run_id, created_at);
CREATE INDEX IF NOT EXISTS idx_journal_run_seq ON journal(run_id, seq);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records the start of a batch.
func (s *Store) BeginRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, started_at) VALUES(?, ?)
		 ON CONFLICT(run_id) DO NOTHING`,
		runID, formatTime(startedAt))
	return err
}

// FinishRun stores the final summary of a batch.
func (s *Store) FinishRun(ctx context.Context, runID string, summary domain.Summary, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, files = ?, words = ?, seconds = ? WHERE run_id = ?`,
		formatTime(finishedAt), summary.Files, summary.Words, summary.Seconds, runID)
	return err
}

// AppendTranscript records one finished file of a run.
func (s *Store) AppendTranscript(ctx context.Context, runID string, result domain.TranscriptResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts(run_id, file_name, words, seconds, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		runID, result.Name, result.Words, result.Seconds, formatTime(s.clock()))
	return err
}

// AppendJournal persists run-journal entries for later inspection.
func (s *Store) AppendJournal(ctx context.Context, runID string, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		at := entry.At
		if at.IsZero() {
			at = s.clock()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO journal(run_id, seq, event_type, file_name, message, created_at)
			 VALUES(?, ?, ?, ?, ?, ?)`,
			runID, entry.Seq, entry.Type, entry.File, entry.Message, formatTime(at)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RecentRuns lists the most recent batch runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, files, words, seconds
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &started, &finished, &r.Files, &r.Words, &r.Seconds); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if ts, err := parseStoredTime(started); err == nil {
			r.StartedAt = ts
		}
		if finished.Valid {
			if ts, err := parseStoredTime(finished.String); err == nil {
				r.FinishedAt = &ts
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// TranscriptsForRun lists the per-file results of one run in insert order.
func (s *Store) TranscriptsForRun(ctx context.Context, runID string) ([]domain.TranscriptResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_name, words, seconds FROM transcripts
		 WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.TranscriptResult
	for rows.Next() {
		var r domain.TranscriptResult
		if err := rows.Scan(&r.Name, &r.Words, &r.Seconds); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Timestamps are stored as RFC3339 text so reads never depend on
// driver-specific time binding.
func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseStoredTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}
