// Package progress is the durable per-document ledger behind resumable
// ingestion. Each corpus gets one SQLite file; the Claim operation is a
// compare-and-set row update, so concurrent workers and successive runs
// agree on who owns a document.
package progress

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"govreporter/internal/models"
)

// Document statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Run statuses.
const (
	RunRunning     = "running"
	RunCompleted   = "completed"
	RunFailed      = "failed"
	RunInterrupted = "interrupted"
)

const schema = `
CREATE TABLE IF NOT EXISTS document_progress (
  document_id TEXT PRIMARY KEY,
  status      TEXT NOT NULL,
  attempts    INTEGER NOT NULL DEFAULT 0,
  error       TEXT,
  duration_ms INTEGER,
  updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_document_progress_status ON document_progress(status);
CREATE TABLE IF NOT EXISTS ingestion_runs (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  started_at TEXT NOT NULL,
  ended_at   TEXT,
  args       TEXT,
  status     TEXT NOT NULL
);
`

// Store is one corpus's progress ledger.
type Store struct {
	db          *sql.DB
	staleAfter  time.Duration
	maxAttempts int
}

// Options tunes claim semantics.
type Options struct {
	// StaleAfter is how long a processing claim survives before another
	// worker may take it over. Zero selects 10 minutes.
	StaleAfter time.Duration
	// MaxAttempts bounds how often a failed document is re-claimed.
	// Zero selects 3.
	MaxAttempts int
}

// Open creates or opens the ledger for one document type under dir, then
// reverts processing rows left behind by a dead run to pending.
func Open(dir string, docType models.DocumentType, opts Options) (*Store, error) {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create progress directory: %w", err)
	}

	path := filepath.Join(dir, docType.Collection()+".db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open progress db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply progress schema: %w", err)
	}

	s := &Store{db: db, staleAfter: opts.StaleAfter, maxAttempts: opts.MaxAttempts}
	if err := s.resetStale(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddPending inserts a discovered document id, leaving any existing record
// untouched.
func (s *Store) AddPending(id string) error {
	_, err := s.db.Exec(`
		INSERT INTO document_progress (document_id, status, attempts, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(document_id) DO NOTHING`,
		id, StatusPending, now())
	if err != nil {
		return fmt.Errorf("add pending %s: %w", id, err)
	}
	return nil
}

// Claim atomically takes ownership of a document. It succeeds when the
// record is absent, pending, failed with retry budget remaining, or stuck in
// processing past the stale threshold. Of concurrent claimants exactly one
// wins: the compare-and-set is a single SQLite statement.
func (s *Store) Claim(id string) (bool, error) {
	staleCutoff := time.Now().UTC().Add(-s.staleAfter).Format(time.RFC3339)
	res, err := s.db.Exec(`
		INSERT INTO document_progress (document_id, status, attempts, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			status = excluded.status,
			attempts = document_progress.attempts + 1,
			error = NULL,
			updated_at = excluded.updated_at
		WHERE document_progress.status = 'pending'
		   OR (document_progress.status = 'failed' AND document_progress.attempts < ?)
		   OR (document_progress.status = 'processing' AND document_progress.updated_at < ?)`,
		id, StatusProcessing, now(), s.maxAttempts, staleCutoff)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	return n > 0, nil
}

// Complete marks a claimed document done.
func (s *Store) Complete(id string, duration time.Duration) error {
	_, err := s.db.Exec(`
		UPDATE document_progress
		SET status = ?, error = NULL, duration_ms = ?, updated_at = ?
		WHERE document_id = ?`,
		StatusCompleted, duration.Milliseconds(), now(), id)
	if err != nil {
		return fmt.Errorf("complete %s: %w", id, err)
	}
	return nil
}

// Fail marks a claimed document failed with the reason.
func (s *Store) Fail(id, errMsg string, duration time.Duration) error {
	_, err := s.db.Exec(`
		UPDATE document_progress
		SET status = ?, error = ?, duration_ms = ?, updated_at = ?
		WHERE document_id = ?`,
		StatusFailed, errMsg, duration.Milliseconds(), now(), id)
	if err != nil {
		return fmt.Errorf("fail %s: %w", id, err)
	}
	return nil
}

// IsCompleted reports whether the document already finished in a prior run.
func (s *Store) IsCompleted(id string) (bool, error) {
	var status string
	err := s.db.QueryRow(`SELECT status FROM document_progress WHERE document_id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", id, err)
	}
	return status == StatusCompleted, nil
}

// Failure is one recently failed document.
type Failure struct {
	DocumentID string
	Error      string
	UpdatedAt  string
}

// Stats summarizes the ledger.
type Stats struct {
	Pending        int
	Processing     int
	Completed      int
	Failed         int
	AvgDurationMS  float64
	RecentFailures []Failure
}

// Total counts every tracked document.
func (st *Stats) Total() int {
	return st.Pending + st.Processing + st.Completed + st.Failed
}

// SuccessRate is completed over terminal documents, 0 when none finished.
func (st *Stats) SuccessRate() float64 {
	terminal := st.Completed + st.Failed
	if terminal == 0 {
		return 0
	}
	return float64(st.Completed) / float64(terminal)
}

// Stats reads per-status counts, average completion time and the ten most
// recent failures.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM document_progress GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("read progress stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case StatusPending:
			st.Pending = count
		case StatusProcessing:
			st.Processing = count
		case StatusCompleted:
			st.Completed = count
		case StatusFailed:
			st.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRow(`
		SELECT AVG(duration_ms) FROM document_progress
		WHERE status = ? AND duration_ms IS NOT NULL`, StatusCompleted).Scan(&avg); err != nil {
		return nil, err
	}
	st.AvgDurationMS = avg.Float64

	failRows, err := s.db.Query(`
		SELECT document_id, COALESCE(error, ''), updated_at
		FROM document_progress WHERE status = ?
		ORDER BY updated_at DESC LIMIT 10`, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer failRows.Close()
	for failRows.Next() {
		var f Failure
		if err := failRows.Scan(&f.DocumentID, &f.Error, &f.UpdatedAt); err != nil {
			return nil, err
		}
		st.RecentFailures = append(st.RecentFailures, f)
	}
	return st, failRows.Err()
}

// Iterate streams document ids with the given status in insertion order.
func (s *Store) Iterate(status string, fn func(id string) error) error {
	rows, err := s.db.Query(`
		SELECT document_id FROM document_progress WHERE status = ? ORDER BY rowid`, status)
	if err != nil {
		return fmt.Errorf("iterate %s: %w", status, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Run is one recorded ingestion invocation.
type Run struct {
	ID        int64
	StartedAt string
	EndedAt   string
	Args      string
	Status    string
}

// StartRun records a new ingestion invocation and returns its row id.
func (s *Store) StartRun(args interface{}) (int64, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("encode run args: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO ingestion_runs (started_at, args, status) VALUES (?, ?, ?)`,
		now(), string(encoded), RunRunning)
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return res.LastInsertId()
}

// EndRun stamps a run terminal.
func (s *Store) EndRun(id int64, status string) error {
	_, err := s.db.Exec(`
		UPDATE ingestion_runs SET ended_at = ?, status = ? WHERE id = ?`,
		now(), status, id)
	if err != nil {
		return fmt.Errorf("end run %d: %w", id, err)
	}
	return nil
}

// RecentRuns lists the latest n runs, newest first.
func (s *Store) RecentRuns(n int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, COALESCE(ended_at, ''), COALESCE(args, ''), status
		FROM ingestion_runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.EndedAt, &r.Args, &r.Status); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// resetStale reverts processing rows from a dead run to pending. Called on
// open, before any worker claims.
func (s *Store) resetStale() error {
	staleCutoff := time.Now().UTC().Add(-s.staleAfter).Format(time.RFC3339)
	_, err := s.db.Exec(`
		UPDATE document_progress SET status = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?`,
		StatusPending, now(), StatusProcessing, staleCutoff)
	if err != nil {
		return fmt.Errorf("reset stale claims: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
