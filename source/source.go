// Package source implements the byte-source abstraction that the revlog
// core reads through: a uniform interface over mmap, a buffered file,
// an inflating wrapper, and an in-memory slice, so the traversal engine
// never needs to know which one it's holding.
package source

import "io"

// DataSource is a single-pass-or-seekable byte source. Implementations
// back either the index (.i) or data (.d) stream, or a lazily-decoded
// revision payload handed to an Inspector.
type DataSource interface {
	// ReadByte reads and returns the next byte.
	ReadByte() (byte, error)
	// ReadBytes reads exactly n bytes into buf starting at buf[off],
	// advancing the source by n bytes. It returns io.ErrUnexpectedEOF if
	// fewer than n bytes remain.
	ReadBytes(buf []byte, off, n int) error
	// ReadUint32 reads a 4-byte big-endian unsigned integer.
	ReadUint32() (uint32, error)
	// ReadUint64 reads an 8-byte big-endian unsigned integer.
	ReadUint64() (uint64, error)
	// Skip advances the source by n bytes without returning them.
	Skip(n int64) error
	// Seek repositions the source to an absolute byte offset within the
	// current logical range (e.g. within one compressed chunk).
	Seek(off int64) error
	// LongSeek repositions an underlying file-backed source to an
	// absolute byte offset within the whole file, bypassing any range
	// limit. Sources with no file underneath return an error.
	LongSeek(off int64) error
	// IsEmpty reports whether zero bytes remain.
	IsEmpty() bool
	// Length reports the total number of bytes the source will yield,
	// or -1 if unknown (an inflating source reading to end-of-stream).
	Length() int64
	// Bytes materializes all remaining bytes into a single slice.
	Bytes() ([]byte, error)
	// Reset returns the source to the position it had when it was
	// constructed, so it can be replayed.
	Reset() error
	// Done releases any resources (scratch buffers, open ranges) held by
	// the source. It does not close an underlying file-backed source
	// shared across revisions.
	Done()
}

// readFull reads exactly len(buf) bytes from r, translating io.EOF into
// io.ErrUnexpectedEOF the way the teacher's util.LdRead does.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
