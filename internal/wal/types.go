package wal

import "fmt"

// FileSegment locates a single record on disk: the file it lives in,
// the byte offset of the record's length prefix, and the payload
// length. It is only valid while the file at Path has not been
// truncated past FileOffset+Length.
type FileSegment struct {
	Path       string
	FileOffset int64
	Length     int64
}

func (s FileSegment) String() string {
	return fmt.Sprintf("%s@%d+%d", s.Path, s.FileOffset, s.Length)
}
