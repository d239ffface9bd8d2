package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Recorder mirrors journal entries into an in-memory store and an
// optional append-only JSONL file. Safe for concurrent use.
type Recorder struct {
	store *Store

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// NewRecorder opens the JSONL file for appending. An empty path
// disables the file; entries still reach the store.
func NewRecorder(store *Store, path string) (*Recorder, error) {
	r := &Recorder{store: store}
	if path == "" {
		return r, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	r.file = f
	return r, nil
}

// Store exposes the in-memory journal for read-side consumers.
func (r *Recorder) Store() *Store {
	if r == nil {
		return nil
	}
	return r.store
}

// Record validates and persists one entry. A zero timestamp is filled
// in with the current time. Invalid entries are dropped.
func (r *Recorder) Record(e Event) {
	if r == nil {
		return
	}
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	if err := e.Validate(); err != nil {
		return
	}
	if r.store != nil {
		r.store.Append(e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil || r.closed {
		return
	}
	line, err := json.Marshal(e)
	if err != nil {
		return
	}
	// Write failures are swallowed: the journal is diagnostics, not
	// session state.
	_, _ = r.file.Write(append(line, '\n'))
}

// Close flushes and closes the JSONL file.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.file == nil {
		r.closed = true
		return nil
	}
	r.closed = true
	return r.file.Close()
}
