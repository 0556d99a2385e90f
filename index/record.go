// Package index implements the revlog .i file's packed binary layout:
// a one-shot scan that builds the base-revision and (for inline
// layouts) record-offset arrays, plus per-record field decoding.
package index

import (
	"fmt"

	"github.com/hgrevlog/revlog/source"
)

// RecordSize is the fixed on-disk size of one revlog v1 index record.
const RecordSize = 64

// nodeIDSize matches revlog.NodeID's length; duplicated here (rather
// than imported) to keep this package free of a dependency back on the
// root package — it decodes raw bytes, it doesn't need the NodeID type.
const nodeIDSize = 20

// Record holds every field of one decoded index entry, per the revlog
// v1 on-disk layout (offset, flags, compressed/actual length, base
// revision, link revision, both parents, and the node id).
type Record struct {
	OffsetInData    int64
	Flags           uint16
	CompressedLen   int32
	ActualLen       int32
	BaseRevision    int32
	LinkRevision    int32
	Parent1         int32
	Parent2         int32
	NodeID          [nodeIDSize]byte
}

// Decode reads one RecordSize-byte record from s, which must be
// positioned at the record's start. isFirst must be true only for
// revision 0, whose on-disk offset field is overloaded by the
// version/inline header word; Decode overrides OffsetInData to 0 in
// that case per spec, rather than trying to interpret the overlay as a
// real data offset.
func Decode(s source.DataSource, isFirst bool) (Record, error) {
	var rec Record

	word, err := s.ReadUint64()
	if err != nil {
		return Record{}, fmt.Errorf("index: read header word: %w", err)
	}
	if isFirst {
		rec.OffsetInData = 0
	} else {
		rec.OffsetInData = int64(word >> 16)
	}
	rec.Flags = uint16(word & 0xFFFF)

	compressedLen, err := s.ReadUint32()
	if err != nil {
		return Record{}, fmt.Errorf("index: read compressed length: %w", err)
	}
	rec.CompressedLen = int32(compressedLen)

	actualLen, err := s.ReadUint32()
	if err != nil {
		return Record{}, fmt.Errorf("index: read actual length: %w", err)
	}
	rec.ActualLen = int32(actualLen)

	baseRev, err := s.ReadUint32()
	if err != nil {
		return Record{}, fmt.Errorf("index: read base revision: %w", err)
	}
	rec.BaseRevision = int32(baseRev)

	linkRev, err := s.ReadUint32()
	if err != nil {
		return Record{}, fmt.Errorf("index: read link revision: %w", err)
	}
	rec.LinkRevision = int32(linkRev)

	p1, err := s.ReadUint32()
	if err != nil {
		return Record{}, fmt.Errorf("index: read parent 1: %w", err)
	}
	rec.Parent1 = int32(p1)

	p2, err := s.ReadUint32()
	if err != nil {
		return Record{}, fmt.Errorf("index: read parent 2: %w", err)
	}
	rec.Parent2 = int32(p2)

	if err := s.ReadBytes(rec.NodeID[:], 0, nodeIDSize); err != nil {
		return Record{}, fmt.Errorf("index: read node id: %w", err)
	}

	if err := s.Skip(12); err != nil {
		return Record{}, fmt.Errorf("index: skip reserved bytes: %w", err)
	}

	return rec, nil
}

// RecordOffset returns the byte offset of record ri's start within the
// index stream: recordOffsets[ri] when the revlog is inline, or ri*64
// when it isn't (a dense array of fixed-size records).
func RecordOffset(ri int, inline bool, recordOffsets []int32) int64 {
	if inline {
		return int64(recordOffsets[ri])
	}
	return int64(ri) * RecordSize
}
