package wal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const filePrefix = "log"

// Manager owns a directory of rotating log files. Callers get a single
// append-only stream through Write; Manager rotates to a new file once
// the current one crosses rolloverBytes or rolloverInterval has
// elapsed since it was opened.
//
// File names are log-<startNanos>-<endNanos>. The end label is fixed
// at creation time, computed as start+rolloverInterval, rather than
// renamed when the file is later closed — a FileSegment handed out
// mid-file must keep pointing at the same path for as long as it is
// valid, and a rename-on-rotate would break that contract for every
// FileSegment issued against the file so far.
type Manager struct {
	mu sync.Mutex

	dir             string
	rolloverBytes   int64
	rolloverInterval time.Duration

	current      *Writer
	currentStart time.Time
	currentEnd   time.Time
}

// NewManager opens dir (creating it if necessary) and prepares for
// writes. It does not open a file until the first Write.
func NewManager(dir string, rolloverBytes int64, rolloverInterval time.Duration) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wal: create directory: %w", err)
	}
	if rolloverInterval <= 0 {
		rolloverInterval = 24 * time.Hour
	}
	return &Manager{dir: dir, rolloverBytes: rolloverBytes, rolloverInterval: rolloverInterval}, nil
}

// Write appends payload to the active segment, rotating first if the
// active segment is absent, too large, or too old.
func (m *Manager) Write(now time.Time, payload []byte) (FileSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.Size() >= m.rolloverBytes || !now.Before(m.currentEnd) {
		if err := m.rotateLocked(now); err != nil {
			return FileSegment{}, err
		}
	}
	return m.current.Write(payload)
}

// Rotate forces the next Write to start a fresh segment, regardless of
// size or age.
func (m *Manager) Rotate(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotateLocked(now)
}

func (m *Manager) rotateLocked(now time.Time) error {
	if m.current != nil {
		if err := m.current.Close(); err != nil {
			return err
		}
	}

	end := now.Add(m.rolloverInterval)
	name := fmt.Sprintf("%s-%d-%d", filePrefix, now.UnixNano(), end.UnixNano())
	w, err := NewWriter(filepath.Join(m.dir, name))
	if err != nil {
		return err
	}

	m.current = w
	m.currentStart = now
	m.currentEnd = end
	return nil
}

// Close closes the active segment, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.Close()
}

// segmentFiles lists the manager's log files in ascending start-time
// order, skipping anything that doesn't match the naming convention.
func (m *Manager) segmentFiles() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("wal: list %s: %w", m.dir, err)
	}

	type named struct {
		path  string
		start int64
	}
	var files []named
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		start, _, ok := parseLogFilename(e.Name())
		if !ok {
			continue
		}
		files = append(files, named{path: filepath.Join(m.dir, e.Name()), start: start})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].start < files[j].start })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// ReadAll replays every record across every segment, oldest first, in
// write order, invoking handler for each. It stops early and returns
// handler's error if handler returns one.
func (m *Manager) ReadAll(handler func(payload []byte) error) error {
	files, err := m.segmentFiles()
	if err != nil {
		return err
	}

	for _, path := range files {
		if err := m.readFile(path, handler); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) readFile(path string, handler func(payload []byte) error) error {
	r, err := NewReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer r.Close()

	for {
		payload, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := handler(payload); err != nil {
			return err
		}
	}
}

// RandomRead fetches the record at seg, opening its file independently
// of the currently active segment.
func (m *Manager) RandomRead(seg FileSegment) ([]byte, error) {
	r, err := NewRandomReader(seg.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAt(seg)
}

// ClearOldLogs removes every segment file whose end label is strictly
// before threshold. It tolerates files already removed by a
// concurrent cleanup pass and never removes the active segment.
func (m *Manager) ClearOldLogs(threshold time.Time) error {
	m.mu.Lock()
	currentPath := ""
	if m.current != nil {
		currentPath = m.current.path
	}
	m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("wal: list %s: %w", m.dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		_, end, ok := parseLogFilename(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		if path == currentPath {
			continue
		}
		if end >= threshold.UnixNano() {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("wal: remove %s: %w", path, err)
		}
		slog.Default().Debug("wal: cleared old log", "path", path)
	}
	return nil
}

// parseLogFilename extracts the start/end nanosecond labels from a
// log-<start>-<end> file name.
func parseLogFilename(name string) (start, end int64, ok bool) {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) != 3 || parts[0] != filePrefix {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
