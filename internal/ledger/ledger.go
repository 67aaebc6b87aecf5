// Package ledger records runs, per-document outcomes and data-loss events in
// a local SQLite database.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Event kinds.
const (
	KindDataLoss   = "data-loss"
	KindUnexpected = "unexpected"
)

// DocumentRecord is the outcome of processing one container member.
type DocumentRecord struct {
	RunID      string
	Container  string
	Member     string
	Candidates int
	Removed    int
	DataLoss   int
	Unexpected int
	Cleaned    bool
	Identified bool
	Findings   int
	Error      string
	RecordedAt time.Time
}

// Event is a single data-loss or unexpected-element report.
type Event struct {
	RunID     string
	Container string
	Member    string
	Kind      string
	Entity    string
	Element   string
	Fragment  string
}

// Ledger is an open audit database.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, now: time.Now}
	if err := l.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		modes TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running'
	);
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		container TEXT NOT NULL,
		member TEXT NOT NULL,
		candidates INTEGER NOT NULL DEFAULT 0,
		removed INTEGER NOT NULL DEFAULT 0,
		data_loss INTEGER NOT NULL DEFAULT 0,
		unexpected INTEGER NOT NULL DEFAULT 0,
		cleaned INTEGER NOT NULL DEFAULT 0,
		identified INTEGER NOT NULL DEFAULT 0,
		findings INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		container TEXT NOT NULL,
		member TEXT NOT NULL,
		kind TEXT NOT NULL,
		entity TEXT NOT NULL DEFAULT '',
		element TEXT NOT NULL,
		fragment TEXT NOT NULL
	);`
	_, err := l.db.ExecContext(ctx, query)
	return err
}

// BeginRun registers a new run and returns its id.
func (l *Ledger) BeginRun(ctx context.Context, modes string) (string, error) {
	runID := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, modes) VALUES (?, ?, ?)`,
		runID, l.timestamp(), modes,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// FinishRun stamps the run with its final status.
func (l *Ledger) FinishRun(ctx context.Context, runID, status string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE run_id = ?`,
		l.timestamp(), status, runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: unknown run", runID)
	}
	return nil
}

// RecordDocument stores one document outcome.
func (l *Ledger) RecordDocument(ctx context.Context, r DocumentRecord) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO documents (
		run_id, container, member, candidates, removed, data_loss, unexpected, cleaned, identified, findings, error, recorded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Container, r.Member, r.Candidates, r.Removed, r.DataLoss, r.Unexpected,
		boolInt(r.Cleaned), boolInt(r.Identified), r.Findings, r.Error, l.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// RecordEvent stores one data-loss or unexpected-element report.
func (l *Ledger) RecordEvent(ctx context.Context, e Event) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO events (
		run_id, container, member, kind, entity, element, fragment
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Container, e.Member, e.Kind, e.Entity, e.Element, e.Fragment,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentDocuments returns the latest document outcomes, newest first.
func (l *Ledger) RecentDocuments(ctx context.Context, limit int) ([]DocumentRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, container, member, candidates, removed, data_loss, unexpected, cleaned, identified, findings, error, recorded_at
		FROM documents
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []DocumentRecord
	for rows.Next() {
		var (
			r          DocumentRecord
			cleaned    int
			identified int
			recorded   string
		)
		if err := rows.Scan(&r.RunID, &r.Container, &r.Member, &r.Candidates, &r.Removed, &r.DataLoss,
			&r.Unexpected, &cleaned, &identified, &r.Findings, &r.Error, &recorded); err != nil {
			return nil, err
		}
		r.Cleaned = cleaned != 0
		r.Identified = identified != 0
		r.RecordedAt, _ = time.Parse(time.RFC3339Nano, recorded)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Events returns the events recorded for a run in insertion order.
func (l *Ledger) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, container, member, kind, entity, element, fragment
		FROM events
		WHERE run_id = ?
		ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.RunID, &e.Container, &e.Member, &e.Kind, &e.Entity, &e.Element, &e.Fragment); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) timestamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
