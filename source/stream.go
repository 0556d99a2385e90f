package source

import (
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

// Stream is a whole-file byte source opened once for the lifetime of a
// traversal (the index stream or the data stream). It hands out
// DataSource views over sub-ranges via Sub, mirroring the teacher's
// internal/io.NewOffsetReader usage from a single opened
// io.ReaderAt (see v2/blockstore/ro_blockstore.go and introspector.go).
type Stream struct {
	ra     io.ReaderAt
	closer io.Closer
	size   int64
}

// OpenMmap opens path as a memory-mapped Stream. "auto" behavior (mmap,
// falling back to a buffered file) is the caller's responsibility via
// OpenMmap/OpenBuffered; this keeps the package free of the
// revlog-level SourceStrategy enum.
func OpenMmap(path string) (*Stream, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &Stream{ra: r, closer: r, size: int64(r.Len())}, nil
}

// OpenBuffered opens path with a plain *os.File, read via ReadAt. This
// is the fallback used when mmap setup fails or is disabled.
func OpenBuffered(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Stream{ra: f, closer: f, size: fi.Size()}, nil
}

// NewStream wraps an already-open io.ReaderAt (e.g. an in-memory
// *bytes.Reader in tests) of the given size.
func NewStream(ra io.ReaderAt, size int64) *Stream {
	return &Stream{ra: ra, size: size}
}

// Size returns the total number of bytes in the stream.
func (s *Stream) Size() int64 {
	return s.size
}

// Sub returns a DataSource reading length bytes starting at offset. A
// negative length means "read to the end of the stream".
func (s *Stream) Sub(offset, length int64) DataSource {
	if length < 0 {
		length = s.size - offset
	}
	return newRandomAccess(s.ra, offset, length)
}

// Close releases the underlying file handle or mapping.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
