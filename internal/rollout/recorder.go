package rollout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// writerCapacity bounds the recorder's pending-write queue.
//
// Maps to: spec §4.G "bounded mpsc (capacity 256)"
const writerCapacity = 256

type writeRequest struct {
	line *protocol.RolloutLine
	ack  chan error
}

// Recorder owns a single rollout file and the one goroutine that appends to
// it. All writes go through a bounded channel so callers never block on disk
// I/O directly; flush and shutdown are sequencing barriers, not fsyncs.
//
// Maps to: codex-rs/core/src/rollout/recorder.go (single-writer task)
type Recorder struct {
	path    string
	queue   chan writeRequest
	done    chan struct{}
	closeCh chan struct{}
}

// NewRecorder creates the dated directory for startedAt, opens (or creates)
// the rollout file for append, writes the SessionMeta as the first line, and
// starts the writer goroutine.
func NewRecorder(codexHome string, startedAt time.Time, meta protocol.SessionMeta) (*Recorder, error) {
	path := FilePath(codexHome, startedAt, meta.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("rollout: create session directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("rollout: open rollout file: %w", err)
	}

	r := &Recorder{
		path:    path,
		queue:   make(chan writeRequest, writerCapacity),
		done:    make(chan struct{}),
		closeCh: make(chan struct{}),
	}
	go r.run(f)

	metaLine := &protocol.RolloutLine{
		Timestamp: startedAt,
		Item: protocol.RolloutItem{
			Type:        protocol.RolloutSessionMeta,
			SessionMeta: &meta,
		},
	}
	if err := r.write(metaLine); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the rollout file's location on disk.
func (r *Recorder) Path() string { return r.path }

func (r *Recorder) run(f *os.File) {
	defer f.Close()
	enc := json.NewEncoder(f)
	for {
		select {
		case req := <-r.queue:
			if req.line == nil {
				// Barrier request: nothing to write, just ack once the
				// queue has drained up to this point.
				req.ack <- nil
				continue
			}
			req.ack <- enc.Encode(req.line)
		case <-r.closeCh:
			close(r.done)
			return
		}
	}
}

func (r *Recorder) write(line *protocol.RolloutLine) error {
	ack := make(chan error, 1)
	r.queue <- writeRequest{line: line, ack: ack}
	return <-ack
}

// RecordItems appends items to the rollout file, skipping any that the
// persistence policy drops. Each kept item is stamped with the given
// timestamp and written as its own JSONL line.
//
// Maps to: spec §4.G record_items
func (r *Recorder) RecordItems(at time.Time, items []protocol.RolloutItem) error {
	for _, item := range items {
		if !ShouldPersist(item) {
			continue
		}
		if err := r.write(&protocol.RolloutLine{Timestamp: at, Item: item}); err != nil {
			return err
		}
	}
	return nil
}

// Flush issues a sequencing barrier: it blocks until every write enqueued
// before this call has been appended, but does not fsync.
//
// Maps to: spec §4.G flush()
func (r *Recorder) Flush() error {
	ack := make(chan error, 1)
	r.queue <- writeRequest{line: nil, ack: ack}
	return <-ack
}

// Shutdown flushes pending writes, then stops the writer goroutine and
// closes the underlying file.
func (r *Recorder) Shutdown() error {
	if err := r.Flush(); err != nil {
		return err
	}
	close(r.closeCh)
	<-r.done
	return nil
}
