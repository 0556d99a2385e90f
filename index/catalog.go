package index

import (
	"errors"
	"fmt"
	"math"

	"github.com/hgrevlog/revlog/source"
)

// ErrCorruptIndex is returned when a record's offset overflows the
// 32-bit range Build can represent. A truncated stream is reported
// through the wrapped read error (e.g. io.ErrUnexpectedEOF) instead.
var ErrCorruptIndex = errors.New("index: corrupt or truncated index stream")

// Catalog is the outcome of one forward scan over a revlog's .i
// stream: per-revision base revisions, and — for inline layouts only —
// the physical byte offset of each record within the combined stream.
type Catalog struct {
	Inline        bool
	BaseRevisions []int32
	RecordOffsets []int32 // empty when !Inline; record i starts at RecordOffsets[i]
}

// Count returns the number of revisions the scan found.
func (c *Catalog) Count() int {
	return len(c.BaseRevisions)
}

// offsetToInt narrows a 48-bit on-disk offset to int32, the width
// RecordOffsets is stored in. Inline revlogs keep their interleaved
// data under 2GiB in practice; a value that doesn't fit means the
// stream is corrupt or this reader's inline-size assumption doesn't
// hold, either way not safe to guess past.
func offsetToInt(off int64) (int32, error) {
	if off < 0 || off > math.MaxInt32 {
		return 0, fmt.Errorf("%w: offset %d does not fit in 32 bits", ErrCorruptIndex, off)
	}
	return int32(off), nil
}

// Build performs the single forward scan described by the revlog v1
// index format: read the overloaded version/inline word that
// masquerades as revision 0's header, then walk every record in turn,
// gathering base revisions and (for inline layouts) record offsets.
//
// For an inline revlog, each record's compressed payload is interleaved
// immediately after its 64-byte header; Build skips over that payload
// to reach the next record's header, accumulating RecordOffsets as it
// goes so a later seek doesn't need to replay the scan.
func Build(s source.DataSource) (*Catalog, error) {
	if s.IsEmpty() {
		return &Catalog{Inline: true}, nil
	}

	versionWord, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("index: read version word: %w", err)
	}
	if _, err := s.ReadUint32(); err != nil { // second half of revision 0's overlaid header, discarded
		return nil, fmt.Errorf("index: read discarded header word: %w", err)
	}
	inline := versionWord&0x00010000 != 0

	cat := &Catalog{Inline: inline}
	var dataOffset int64 // on-disk offset field of the record about to be read

	for {
		compressedLen, err := s.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("index: read compressed length: %w", err)
		}
		if _, err := s.ReadUint32(); err != nil { // actual_len, unused by the catalog scan
			return nil, fmt.Errorf("index: read actual length: %w", err)
		}
		baseRev, err := s.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("index: read base revision: %w", err)
		}
		if err := s.Skip(44); err != nil { // link_rev, p1, p2, nodeid, reserved
			return nil, fmt.Errorf("index: skip record tail: %w", err)
		}

		cat.BaseRevisions = append(cat.BaseRevisions, int32(baseRev))

		if inline {
			physical, err := offsetToInt(dataOffset)
			if err != nil {
				return nil, err
			}
			physical += RecordSize * int32(len(cat.RecordOffsets))
			cat.RecordOffsets = append(cat.RecordOffsets, physical)

			if err := s.Skip(int64(int32(compressedLen))); err != nil {
				return nil, fmt.Errorf("index: skip interleaved payload: %w", err)
			}
		}

		if s.IsEmpty() {
			break
		}

		word, err := s.ReadUint64()
		if err != nil {
			return nil, fmt.Errorf("index: read next header word: %w", err)
		}
		dataOffset = int64(word >> 16)
	}

	return cat, nil
}
