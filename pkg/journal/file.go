package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FileJournal is a line-delimited JSON journal backed by a single
// append-only file. One record per line, sortable by the embedded
// timestamp. The file is never rewritten in place, only appended.
type FileJournal struct {
	path   string
	mu     sync.Mutex
	file   *os.File
	lastTS time.Time
	closed bool
}

// NewFileJournal opens (or creates) a file journal at path
func NewFileJournal(path string) (*FileJournal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	fj := &FileJournal{
		path: path,
		file: file,
	}

	// Recover the last timestamp so new appends stay ordered across
	// restarts.
	if err := fj.scan(context.Background(), time.Time{}, func(rec Record) error {
		if rec.Timestamp.After(fj.lastTS) {
			fj.lastTS = rec.Timestamp
		}
		return nil
	}); err != nil {
		file.Close()
		return nil, err
	}

	return fj, nil
}

// Path returns the journal file path
func (fj *FileJournal) Path() string {
	return fj.path
}

// Append durably writes a record as one JSON line
func (fj *FileJournal) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fj.mu.Lock()
	defer fj.mu.Unlock()

	if fj.closed {
		return ErrClosed
	}

	fj.stamp(&rec)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal journal record: %w", err)
	}

	if _, err := fj.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append journal record: %w", err)
	}

	// Durability before return: callers treat a successful Append as
	// a committed record.
	if err := fj.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}

	fj.lastTS = rec.Timestamp

	return nil
}

// Stream reads records in file order, which matches timestamp order
// because appends are serialized and stamped monotonically
func (fj *FileJournal) Stream(ctx context.Context, from time.Time, fn func(Record) error) error {
	return fj.scan(ctx, from, fn)
}

// Len returns the number of parseable records in the journal
func (fj *FileJournal) Len() (int, error) {
	count := 0
	err := fj.scan(context.Background(), time.Time{}, func(Record) error {
		count++
		return nil
	})
	return count, err
}

// Close closes the underlying file handle
func (fj *FileJournal) Close() error {
	fj.mu.Lock()
	defer fj.mu.Unlock()

	if fj.closed {
		return nil
	}
	fj.closed = true

	return fj.file.Close()
}

// stamp assigns an ID and a strictly increasing timestamp.
// Callers hold fj.mu.
func (fj *FileJournal) stamp(rec *Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if !rec.Timestamp.After(fj.lastTS) {
		rec.Timestamp = fj.lastTS.Add(time.Nanosecond)
	}
}

func (fj *FileJournal) scan(ctx context.Context, from time.Time, fn func(Record) error) error {
	file, err := os.Open(fj.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open journal for reading: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			// A torn trailing line from a crashed writer is not
			// fatal to readers.
			log.Warn().
				Str("path", fj.path).
				Err(err).
				Msg("Skipping unparseable journal line")
			continue
		}

		if rec.Timestamp.Before(from) {
			continue
		}

		if err := fn(rec); err != nil {
			if err == ErrStop {
				return nil
			}
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan journal: %w", err)
	}

	return nil
}
