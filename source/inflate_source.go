package source

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
)

// scratchSize is the size of the buffer the inflater pulls through, so a
// traversal doesn't allocate a fresh one per revision. It matches the
// 10KiB scratch buffer the traversal loop is specified to reuse.
const scratchSize = 10 * 1024

// compressedReader is what newInflateSource needs from its backing
// source: a rewindable io.Reader. randomAccess (the file/mmap-backed
// view over one compressed chunk) satisfies it.
type compressedReader interface {
	io.Reader
	Reset() error
}

// Inflater wraps a single zlib decompressor and a scratch buffer, reused
// across revisions within one traversal to avoid per-record allocation,
// per the concurrency model's "a single zlib inflator is reused"
// invariant. It must be Closed once at the end of a traversal.
type Inflater struct {
	zr      io.ReadCloser
	scratch [scratchSize]byte
}

// NewInflater returns an unstarted Inflater.
func NewInflater() *Inflater {
	return &Inflater{}
}

// Close releases the current zlib reader, if any.
func (inf *Inflater) Close() error {
	if inf.zr == nil {
		return nil
	}
	err := inf.zr.Close()
	inf.zr = nil
	return err
}

// inflateSource is the lazy byte source PayloadDecoder hands back for a
// zlib-tagged ('x') payload chunk. It is single-pass per open(): once
// bytes are consumed they are gone unless Reset re-drives the
// underlying compressed chunk and reopens the zlib reader.
type inflateSource struct {
	inflater    *Inflater
	compressed  compressedReader
	declaredLen int64 // -1 if unknown (a patch's uncompressed size isn't known yet)
	read        int64
	pending     []byte // one byte peeked by IsEmpty, replayed on next Read
}

// newInflateSource builds a lazy source that inflates compressed (a
// zlib stream read from a bounded chunk), bounding the decompressed
// output to declaredLen bytes when known (a base snapshot) or reading to
// end-of-stream when declaredLen is -1 (a patch).
func newInflateSource(inflater *Inflater, compressed compressedReader, declaredLen int64) (*inflateSource, error) {
	s := &inflateSource{inflater: inflater, compressed: compressed, declaredLen: declaredLen}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *inflateSource) open() error {
	if s.inflater.zr != nil {
		s.inflater.zr.Close()
	}
	zr, err := zlib.NewReader(s.compressed)
	if err != nil {
		return err
	}
	s.inflater.zr = zr
	s.read = 0
	return nil
}

// fill reads into buf, clamping to the declared length when it's known
// so a base snapshot never yields more than actual_len bytes even if the
// zlib stream (corruptly) contains more.
func (s *inflateSource) fill(buf []byte) (int, error) {
	if s.declaredLen >= 0 {
		if rem := s.declaredLen - s.read; rem <= 0 {
			return 0, io.EOF
		} else if int64(len(buf)) > rem {
			buf = buf[:rem]
		}
	}
	n, err := s.inflater.zr.Read(buf)
	s.read += int64(n)
	return n, err
}

func (s *inflateSource) ReadByte() (byte, error) {
	var b [1]byte
	if err := readFull(dataFillerReader{s}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *inflateSource) ReadBytes(buf []byte, off, n int) error {
	return readFull(dataFillerReader{s}, buf[off:off+n])
}

func (s *inflateSource) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := s.ReadBytes(buf[:], 0, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (s *inflateSource) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := s.ReadBytes(buf[:], 0, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (s *inflateSource) Skip(n int64) error {
	r := dataFillerReader{s}
	buf := s.inflater.scratch[:]
	for n > 0 {
		chunk := buf
		if int64(len(chunk)) > n {
			chunk = chunk[:n]
		}
		m, err := r.Read(chunk)
		n -= int64(m)
		if err != nil {
			if err == io.EOF && n <= 0 {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *inflateSource) Seek(off int64) error {
	if err := s.Reset(); err != nil {
		return err
	}
	return s.Skip(off)
}

func (s *inflateSource) LongSeek(off int64) error {
	return errNotFileBacked
}

func (s *inflateSource) IsEmpty() bool {
	if s.declaredLen >= 0 {
		return s.declaredLen-s.read <= 0
	}
	var b [1]byte
	n, _ := s.inflater.zr.Read(b[:])
	if n == 0 {
		return true
	}
	s.read += int64(n)
	s.pending = append(s.pending, b[0])
	return false
}

func (s *inflateSource) Length() int64 {
	return s.declaredLen
}

func (s *inflateSource) Bytes() ([]byte, error) {
	var out bytes.Buffer
	if _, err := io.Copy(&out, dataFillerReader{s}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (s *inflateSource) Reset() error {
	if err := s.compressed.Reset(); err != nil {
		return err
	}
	s.pending = nil
	return s.open()
}

func (s *inflateSource) Done() {
	s.inflater.Close()
}

var errNotFileBacked = errors.New("revlog/source: long seek unsupported on an inflating source")

// dataFillerReader adapts inflateSource.fill (which also needs to drain
// any byte buffered by IsEmpty's peek) to io.Reader for io.ReadFull/io.Copy.
type dataFillerReader struct {
	s *inflateSource
}

func (r dataFillerReader) Read(p []byte) (int, error) {
	if len(r.s.pending) > 0 {
		n := copy(p, r.s.pending)
		r.s.pending = r.s.pending[n:]
		return n, nil
	}
	return r.s.fill(p)
}
