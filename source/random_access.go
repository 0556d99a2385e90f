package source

import (
	"encoding/binary"
	"io"
)

// randomAccess adapts an io.ReaderAt into a DataSource over a fixed
// byte range, via the stdlib's io.SectionReader — the same "bounded
// view onto a shared io.ReaderAt" shape as the teacher's
// internal/io.OffsetReader, generalized with an explicit length so a
// payload chunk never reads past its compressed_len.
type randomAccess struct {
	ra    io.ReaderAt
	start int64
	n     int64
	sec   *io.SectionReader
}

// newRandomAccess returns a DataSource reading ra starting at start for
// exactly n bytes.
func newRandomAccess(ra io.ReaderAt, start, n int64) *randomAccess {
	return &randomAccess{ra: ra, start: start, n: n, sec: io.NewSectionReader(ra, start, n)}
}

// Read implements io.Reader, satisfying compressedReader so an
// inflateSource can decompress directly off a randomAccess view.
func (s *randomAccess) Read(p []byte) (int, error) {
	return s.sec.Read(p)
}

func (s *randomAccess) ReadByte() (byte, error) {
	var b [1]byte
	if err := readFull(s.sec, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *randomAccess) ReadBytes(buf []byte, off, n int) error {
	return readFull(s.sec, buf[off:off+n])
}

func (s *randomAccess) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := s.ReadBytes(buf[:], 0, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (s *randomAccess) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := s.ReadBytes(buf[:], 0, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (s *randomAccess) Skip(n int64) error {
	_, err := s.sec.Seek(n, io.SeekCurrent)
	return err
}

func (s *randomAccess) Seek(off int64) error {
	_, err := s.sec.Seek(off, io.SeekStart)
	return err
}

func (s *randomAccess) LongSeek(off int64) error {
	s.start = 0
	s.n = -1
	s.sec = io.NewSectionReader(s.ra, 0, 1<<62)
	_, err := s.sec.Seek(off, io.SeekStart)
	return err
}

func (s *randomAccess) IsEmpty() bool {
	cur, _ := s.sec.Seek(0, io.SeekCurrent)
	return cur >= s.sec.Size()
}

func (s *randomAccess) Length() int64 {
	return s.n
}

func (s *randomAccess) Bytes() ([]byte, error) {
	cur, _ := s.sec.Seek(0, io.SeekCurrent)
	rem := s.sec.Size() - cur
	if rem <= 0 {
		return nil, nil
	}
	buf := make([]byte, rem)
	if err := readFull(s.sec, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *randomAccess) Reset() error {
	_, err := s.sec.Seek(0, io.SeekStart)
	return err
}

func (s *randomAccess) Done() {}
