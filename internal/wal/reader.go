package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader is a forward iterator over the frames in one log file.
type Reader struct {
	file   *os.File
	closed bool
}

// NewReader opens path for sequential reading from the start.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f}, nil
}

// Next returns the next payload. ok is false once the log has been
// exhausted — either a clean EOF or a truncated trailing frame, both
// of which match real append-only file system semantics where the
// tail may be unflushed; in either case the reader is closed and
// later records, if any, are not read. err is non-nil only for a
// genuine I/O failure distinct from EOF/truncation, and also closes
// the reader.
func (r *Reader) Next() (payload []byte, ok bool, err error) {
	if r.closed {
		return nil, false, nil
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r.file, lenBuf[:]); err != nil {
		if isEOFish(err) {
			r.Close()
			return nil, false, nil
		}
		r.Close()
		return nil, false, fmt.Errorf("wal: read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	payload = make([]byte, length)
	if _, err := io.ReadFull(r.file, payload); err != nil {
		r.Close()
		if isEOFish(err) {
			// A declared length that overruns the file is corruption —
			// the tail of an append-only file may simply be unflushed.
			// Treat it the same as clean EOF: stop, don't raise.
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("wal: read payload: %w", err)
	}

	return payload, true, nil
}

// Close releases the underlying file handle. Safe to call more than
// once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

func isEOFish(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// RandomReader fetches one specific FileSegment by seeking directly to
// its recorded offset, independent of sequential iteration order.
type RandomReader struct {
	file *os.File
}

// NewRandomReader opens path for random access.
func NewRandomReader(path string) (*RandomReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &RandomReader{file: f}, nil
}

// ReadAt returns exactly seg.Length bytes read from seg.Path at
// seg.FileOffset, after validating the on-disk frame's declared
// length matches what the segment expects.
func (r *RandomReader) ReadAt(seg FileSegment) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := r.file.ReadAt(lenBuf[:], seg.FileOffset); err != nil {
		return nil, fmt.Errorf("wal: read segment length prefix: %w", err)
	}
	length := int64(binary.BigEndian.Uint32(lenBuf[:]))
	if length != seg.Length {
		return nil, ErrSegmentMismatch
	}

	payload := make([]byte, length)
	if _, err := r.file.ReadAt(payload, seg.FileOffset+int64(len(lenBuf))); err != nil {
		return nil, fmt.Errorf("wal: read segment payload: %w", err)
	}
	return payload, nil
}

// Close releases the underlying file handle.
func (r *RandomReader) Close() error {
	return r.file.Close()
}
