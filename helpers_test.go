package revlog

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hgrevlog/revlog/source"
)

// testRev describes one revision for the synthetic revlog builders
// below. payload is the exact on-disk compressed_len bytes (tag byte
// included where the scenario calls for one); actualLen is the
// declared uncompressed/reconstructed length.
type testRev struct {
	baseRev   int32
	actualLen int32
	link      int32
	p1, p2    int32
	nodeID    NodeID
	payload   []byte
}

func mustZlib(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// hunkBytes encodes one mpatch hunk header + replacement. A start value
// small enough that its big-endian encoding's first byte is 0x00 (true
// for any start < 2^24) makes the encoded hunk stream fall into
// PayloadDecoder's literal "any other byte" branch with no wrapping tag
// needed, matching how real revlog patch payloads are written.
func hunkBytes(start, end, length uint32, replacement []byte) []byte {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:4], start)
	binary.BigEndian.PutUint32(buf[4:8], end)
	binary.BigEndian.PutUint32(buf[8:12], length)
	out := append([]byte(nil), buf[:]...)
	return append(out, replacement...)
}

func buildInlineBytes(recs []testRev) []byte {
	var buf bytes.Buffer
	var cumulative int64
	for i, r := range recs {
		if i == 0 {
			binary.Write(&buf, binary.BigEndian, uint32(0x00010001))
			binary.Write(&buf, binary.BigEndian, uint32(0))
		} else {
			word := uint64(cumulative)<<16 | uint64(0)
			binary.Write(&buf, binary.BigEndian, word)
		}
		binary.Write(&buf, binary.BigEndian, uint32(len(r.payload)))
		binary.Write(&buf, binary.BigEndian, uint32(r.actualLen))
		binary.Write(&buf, binary.BigEndian, uint32(r.baseRev))
		binary.Write(&buf, binary.BigEndian, uint32(r.link))
		binary.Write(&buf, binary.BigEndian, uint32(r.p1))
		binary.Write(&buf, binary.BigEndian, uint32(r.p2))
		buf.Write(r.nodeID[:])
		buf.Write(make([]byte, 12))
		buf.Write(r.payload)
		cumulative += int64(len(r.payload))
	}
	return buf.Bytes()
}

func buildSeparateBytes(recs []testRev) (iBytes, dBytes []byte) {
	var ibuf, dbuf bytes.Buffer
	var cumulative int64
	for i, r := range recs {
		if i == 0 {
			binary.Write(&ibuf, binary.BigEndian, uint32(0x00000001))
			binary.Write(&ibuf, binary.BigEndian, uint32(0))
		} else {
			word := uint64(cumulative)<<16 | uint64(0)
			binary.Write(&ibuf, binary.BigEndian, word)
		}
		binary.Write(&ibuf, binary.BigEndian, uint32(len(r.payload)))
		binary.Write(&ibuf, binary.BigEndian, uint32(r.actualLen))
		binary.Write(&ibuf, binary.BigEndian, uint32(r.baseRev))
		binary.Write(&ibuf, binary.BigEndian, uint32(r.link))
		binary.Write(&ibuf, binary.BigEndian, uint32(r.p1))
		binary.Write(&ibuf, binary.BigEndian, uint32(r.p2))
		ibuf.Write(r.nodeID[:])
		ibuf.Write(make([]byte, 12))
		dbuf.Write(r.payload)
		cumulative += int64(len(r.payload))
	}
	return ibuf.Bytes(), dbuf.Bytes()
}

// writeInlineRevlog writes recs as an inline revlog under dir and
// returns the .i path.
func writeInlineRevlog(t *testing.T, dir string, recs []testRev) string {
	t.Helper()
	path := filepath.Join(dir, "inline.i")
	require.NoError(t, os.WriteFile(path, buildInlineBytes(recs), 0o644))
	return path
}

// writeSeparateRevlog writes recs as a separate .i/.d pair under dir
// and returns the .i path.
func writeSeparateRevlog(t *testing.T, dir string, recs []testRev) string {
	t.Helper()
	iBytes, dBytes := buildSeparateBytes(recs)
	iPath := filepath.Join(dir, "separate.i")
	dPath := filepath.Join(dir, "separate.d")
	require.NoError(t, os.WriteFile(iPath, iBytes, 0o644))
	require.NoError(t, os.WriteFile(dPath, dBytes, 0o644))
	return iPath
}

// visit records one call an inspector received.
type visit struct {
	ri        RevisionIndex
	actualLen int32
	baseRev   RevisionIndex
	linkRev   RevisionIndex
	p1, p2    RevisionIndex
	nodeID    NodeID
	data      []byte
}

// collector is a test Inspector (and, optionally, Lifecycle) that
// records every visited revision and can request a stop after a given
// revision index.
type collector struct {
	visits       []visit
	stopAfter    RevisionIndex
	hasStopAfter bool
	cancel       *CancelHandle
	started      bool
	finished     bool
}

func (c *collector) Next(ri RevisionIndex, actualLen int32, baseRev, linkRev, p1, p2 RevisionIndex, nodeID NodeID, payload source.DataSource) error {
	data, err := payload.Bytes()
	if err != nil {
		return err
	}
	c.visits = append(c.visits, visit{
		ri: ri, actualLen: actualLen, baseRev: baseRev, linkRev: linkRev,
		p1: p1, p2: p2, nodeID: nodeID, data: append([]byte(nil), data...),
	})
	return nil
}

func (c *collector) Start(totalWork int, cancel *CancelHandle) {
	c.started = true
	c.cancel = cancel
}

func (c *collector) Finish(cancel *CancelHandle) {
	c.finished = true
}

func (c *collector) StopRequested() bool {
	if !c.hasStopAfter || len(c.visits) == 0 {
		return false
	}
	return c.visits[len(c.visits)-1].ri >= c.stopAfter
}
