package source

import (
	"encoding/binary"
	"io"
)

// memSource is a literal in-memory byte slice source, used for the
// PayloadDecoder's verbatim ('u') and raw (anything else) branches once
// the relevant bytes have already been read off the index/data stream.
type memSource struct {
	buf []byte
	pos int
}

// NewMemSource wraps buf as a DataSource. The source does not copy buf.
func NewMemSource(buf []byte) DataSource {
	return &memSource{buf: buf}
}

func (s *memSource) remaining() []byte {
	return s.buf[s.pos:]
}

func (s *memSource) ReadByte() (byte, error) {
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}

func (s *memSource) ReadBytes(buf []byte, off, n int) error {
	if n > len(s.remaining()) {
		return io.ErrUnexpectedEOF
	}
	copy(buf[off:off+n], s.remaining())
	s.pos += n
	return nil
}

func (s *memSource) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := s.ReadBytes(buf[:], 0, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (s *memSource) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := s.ReadBytes(buf[:], 0, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (s *memSource) Skip(n int64) error {
	s.pos += int(n)
	return nil
}

func (s *memSource) Seek(off int64) error {
	s.pos = int(off)
	return nil
}

func (s *memSource) LongSeek(off int64) error {
	return errNotFileBacked
}

func (s *memSource) IsEmpty() bool {
	return s.pos >= len(s.buf)
}

func (s *memSource) Length() int64 {
	return int64(len(s.buf))
}

func (s *memSource) Bytes() ([]byte, error) {
	rest := s.remaining()
	s.pos = len(s.buf)
	return rest, nil
}

func (s *memSource) Reset() error {
	s.pos = 0
	return nil
}

func (s *memSource) Done() {}
