package wal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer is scoped over one open output file, appending
// length-prefixed payloads: [int32 length][length bytes payload]. No
// magic, no checksum — integrity comes from the underlying
// append-only file system, per the core's WAL design.
//
// A Writer is single-writer by contract; callers needing concurrent
// producers should serialize through Manager instead of sharing a
// Writer across goroutines without external locking.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	offset int64 // next write position, also current file size
	closed bool
}

// NewWriter opens path for append, creating it (and its parent
// directory) if necessary, and positions the writer after any
// existing bytes.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("wal: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wal: stat %s: %w", path, err)
	}
	return &Writer{file: f, path: path, offset: info.Size()}, nil
}

// Write appends payload as one frame and returns the FileSegment
// locating it. Exactly one FileSegment is produced per accepted
// write.
func (w *Writer) Write(payload []byte) (FileSegment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return FileSegment{}, ErrClosed
	}

	start := w.offset

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))

	if _, err := w.file.Write(lenBuf[:]); err != nil {
		w.closed = true
		return FileSegment{}, fmt.Errorf("wal: write length prefix: %w", err)
	}
	if _, err := w.file.Write(payload); err != nil {
		w.closed = true
		return FileSegment{}, fmt.Errorf("wal: write payload: %w", err)
	}

	w.offset += int64(len(lenBuf)) + int64(len(payload))

	return FileSegment{Path: w.path, FileOffset: start, Length: int64(len(payload))}, nil
}

// Size reports the current file size, including all frames written so
// far, for the manager's rotation threshold check.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.offset
}

// Close flushes and syncs the underlying file and closes it. A writer
// must not be reused after Close.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("wal: sync %s: %w", w.path, err)
	}
	return w.file.Close()
}
