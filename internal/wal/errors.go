package wal

import "errors"

var (
	// ErrClosed indicates the writer or reader is no longer usable.
	ErrClosed = errors.New("wal: already closed")

	// ErrSegmentMismatch indicates a RandomReader found a frame whose
	// declared length does not match the FileSegment it was asked to
	// fetch — the segment no longer describes that file's contents.
	ErrSegmentMismatch = errors.New("wal: segment length does not match frame on disk")
)
