package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal is a journal backed by an embedded SQLite database.
// It offers the same append/stream contract as FileJournal for
// deployments that prefer a single database file over JSONL logs.
type SQLiteJournal struct {
	db     *sql.DB
	mu     sync.Mutex
	lastTS time.Time
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT NOT NULL,
	ts INTEGER NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_ts ON records(ts);
`

// NewSQLiteJournal opens (or creates) a SQLite journal at path
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite journal: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite journal schema: %w", err)
	}

	sj := &SQLiteJournal{db: db}

	var last sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(ts) FROM records`).Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read sqlite journal head: %w", err)
	}
	if last.Valid {
		sj.lastTS = time.Unix(0, last.Int64).UTC()
	}

	return sj, nil
}

// Append durably inserts a record
func (sj *SQLiteJournal) Append(ctx context.Context, rec Record) error {
	sj.mu.Lock()
	defer sj.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if !rec.Timestamp.After(sj.lastTS) {
		rec.Timestamp = sj.lastTS.Add(time.Nanosecond)
	}

	_, err := sj.db.ExecContext(ctx,
		`INSERT INTO records (id, ts, payload) VALUES (?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), []byte(rec.Payload))
	if err != nil {
		return fmt.Errorf("failed to append sqlite journal record: %w", err)
	}

	sj.lastTS = rec.Timestamp

	return nil
}

// Stream reads records ordered by timestamp
func (sj *SQLiteJournal) Stream(ctx context.Context, from time.Time, fn func(Record) error) error {
	rows, err := sj.db.QueryContext(ctx,
		`SELECT id, ts, payload FROM records WHERE ts >= ? ORDER BY ts ASC`,
		from.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to query sqlite journal: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      string
			ts      int64
			payload []byte
		)
		if err := rows.Scan(&id, &ts, &payload); err != nil {
			return fmt.Errorf("failed to scan sqlite journal record: %w", err)
		}

		rec := Record{
			ID:        id,
			Timestamp: time.Unix(0, ts).UTC(),
			Payload:   payload,
		}

		if err := fn(rec); err != nil {
			if err == ErrStop {
				return nil
			}
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate sqlite journal: %w", err)
	}

	return nil
}

// Len returns the number of records in the journal
func (sj *SQLiteJournal) Len() (int, error) {
	var count int
	if err := sj.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sqlite journal records: %w", err)
	}
	return count, nil
}

// Close closes the database
func (sj *SQLiteJournal) Close() error {
	return sj.db.Close()
}
