// Package portalstore records scrape runs in sqlite so downstream
// consumers can read the latest document snapshot, when it was last
// refreshed successfully, and whether the operator needs to
// re-authenticate, all without triggering a scrape themselves.
package portalstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"
)

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time INTEGER NOT NULL,
	success INTEGER NOT NULL,
	needs_reauth INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	document TEXT
);
CREATE INDEX IF NOT EXISTS runs_time ON runs (time);
`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	_, err := db.Exec(Schema)
	if err != nil {
		return Store{}, err
	}
	return Store{db: db}, nil
}

func Open(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	return NewStore(db)
}

func (s Store) Close() error {
	return s.db.Close()
}

type Run struct {
	Time        time.Time
	Success     bool
	NeedsReauth bool
	Error       string
	// the portal document of a successful run, nil otherwise
	Document json.RawMessage
}

func (s Store) Push(ctx context.Context, run Run) error {
	var doc any
	if run.Document != nil {
		doc = string(run.Document)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (time, success, needs_reauth, error, document)
		 VALUES (?, ?, ?, ?, ?)`,
		run.Time.Unix(), run.Success, run.NeedsReauth, run.Error, doc,
	)
	return err
}

func (s Store) scanRun(row *sql.Row) (Run, bool, error) {
	var run Run
	var unix int64
	var doc sql.NullString
	err := row.Scan(&unix, &run.Success, &run.NeedsReauth, &run.Error, &doc)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	run.Time = time.Unix(unix, 0)
	if doc.Valid {
		run.Document = json.RawMessage(doc.String)
	}
	return run, true, nil
}

// Latest returns the most recent run, successful or not.
func (s Store) Latest(ctx context.Context) (Run, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT time, success, needs_reauth, error, document
		 FROM runs ORDER BY time DESC, id DESC LIMIT 1`,
	)
	return s.scanRun(row)
}

// LatestDocument returns the snapshot of the most recent successful
// run, which may be older than Latest when refreshes are failing.
func (s Store) LatestDocument(ctx context.Context) (Run, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT time, success, needs_reauth, error, document
		 FROM runs WHERE success = true ORDER BY time DESC, id DESC LIMIT 1`,
	)
	return s.scanRun(row)
}
