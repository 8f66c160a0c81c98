package audit

import (
	"database/sql"
	"fmt"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	akitasim "github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/sim"
)

const createAccessTable = `
CREATE TABLE IF NOT EXISTS accesses (
	run_id    TEXT    NOT NULL,
	seq       INTEGER NOT NULL,
	step      INTEGER NOT NULL,
	line      INTEGER NOT NULL,
	op        TEXT    NOT NULL,
	address   TEXT    NOT NULL,
	size      INTEGER NOT NULL,
	set_index INTEGER NOT NULL,
	tag       TEXT    NOT NULL,
	outcome   TEXT    NOT NULL,
	PRIMARY KEY (run_id, seq, step)
)`

const insertAccess = `
INSERT INTO accesses (run_id, seq, step, line, op, address, size, set_index, tag, outcome)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteWriter stores access records in a SQLite database, one row per
// cache access. A modify therefore produces two rows sharing a seq,
// told apart by step.
// Addresses and tags are stored as hex text because SQLite integers are
// signed.
type SQLiteWriter struct {
	db        *sql.DB
	path      string
	runID     string
	rows      []sim.AccessRecord
	batchSize int
	err       error
	closed    bool
}

// NewSQLiteWriter opens (or creates) the database at path. An empty path
// picks a unique name in the working directory. Rows are tagged with
// runID, or a fresh id if runID is empty.
func NewSQLiteWriter(path, runID string) (*SQLiteWriter, error) {
	if path == "" {
		path = "cachesim_audit_" + xid.New().String() + ".sqlite3"
	}

	if runID == "" {
		runID = xid.New().String()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if _, err := db.Exec(createAccessTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}

	w := &SQLiteWriter{
		db:        db,
		path:      path,
		runID:     runID,
		batchSize: 10000,
	}

	atexit.Register(func() { _ = w.Close() })

	return w, nil
}

// Path returns the database file.
func (w *SQLiteWriter) Path() string {
	return w.path
}

// RunID returns the id stored with every row.
func (w *SQLiteWriter) RunID() string {
	return w.runID
}

// Func buffers the access.
func (w *SQLiteWriter) Func(ctx akitasim.HookCtx) {
	rec, ok := accessRecord(ctx)
	if !ok || w.closed {
		return
	}

	w.rows = append(w.rows, rec)
	if len(w.rows) >= w.batchSize {
		w.Flush()
	}
}

// Flush writes the buffered rows in one transaction. The first error is
// kept and returned by Close.
func (w *SQLiteWriter) Flush() {
	rows := w.rows
	w.rows = nil

	if len(rows) == 0 || w.closed || w.err != nil {
		return
	}

	if err := w.insert(rows); err != nil {
		w.err = err
	}
}

func (w *SQLiteWriter) insert(rows []sim.AccessRecord) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(insertAccess)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range rows {
		for step, outcome := range rec.Outcomes {
			_, err := stmt.Exec(
				w.runID,
				int64(rec.Seq),
				step,
				rec.Line,
				rec.Op.Token(),
				fmt.Sprintf("%#x", rec.Address),
				int64(rec.Size),
				int64(rec.SetIndex),
				fmt.Sprintf("%#x", rec.Tag),
				outcome.String(),
			)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}

	return tx.Commit()
}

// Close flushes and closes the database. It is safe to call more than
// once.
func (w *SQLiteWriter) Close() error {
	if !w.closed {
		w.Flush()
		w.closed = true

		if err := w.db.Close(); err != nil && w.err == nil {
			w.err = err
		}
	}

	if w.err != nil {
		return fmt.Errorf("failed to write audit database %s: %w", w.path, w.err)
	}

	return nil
}
