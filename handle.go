package revlog

import (
	"fmt"
	"strings"

	"github.com/hgrevlog/revlog/index"
	"github.com/hgrevlog/revlog/source"
)

// RevlogHandle is the entity owning one revlog's path pair and its
// lazily-populated catalog. It is created with Open and discarded by
// the caller when no longer needed; nothing here needs an explicit
// Close unless WithReuseIndexOpens keeps the index stream pinned open,
// in which case Close releases it.
type RevlogHandle struct {
	indexPath string
	dataPath  string
	opts      options

	outlined      bool
	inline        bool
	baseRevisions []int32
	recordOffsets []int32 // nil unless inline

	indexStream *source.Stream // non-nil only when opts.reuseIndexOpens kept one open

	traversing bool // guards against re-entrant IterateRange/IterateSet

	// Snapshot-reuse cache: the last reconstructed revision's bytes and
	// its index, persisted across successive IterateRange/IterateSet
	// calls on this handle so an ascending sequence of calls need not
	// replay a patch chain it has already paid for.
	lastSnapshot []byte
	lastRi       RevisionIndex
	hasLast      bool
}

// Open creates a handle over the index file at indexPath (conventionally
// ending in ".i"); the companion data file, if any, is derived by
// replacing the trailing ".i" with ".d". The catalog is not read until
// the first operation that needs it (Count, DataLength, NodeID,
// LinkRevision, FindRevisionIndex, IterateRange, IterateSet).
func Open(indexPath string, opts ...Option) *RevlogHandle {
	return &RevlogHandle{
		indexPath: indexPath,
		dataPath:  deriveDataPath(indexPath),
		opts:      applyOptions(opts...),
	}
}

func deriveDataPath(indexPath string) string {
	if strings.HasSuffix(indexPath, ".i") {
		return strings.TrimSuffix(indexPath, ".i") + ".d"
	}
	return indexPath + ".d"
}

// Close releases the handle's pinned index stream, if WithReuseIndexOpens
// caused one to be kept open. It is always safe to call, including on a
// handle that was never outlined.
func (h *RevlogHandle) Close() error {
	if h.indexStream == nil {
		return nil
	}
	err := h.indexStream.Close()
	h.indexStream = nil
	return err
}

// openIndexStream opens the .i file per the configured source strategy.
// SourceAuto prefers mmap, falling back to a buffered file reader if the
// mmap setup fails (e.g. a zero-length or unusual filesystem).
func (h *RevlogHandle) openIndexStream() (*source.Stream, error) {
	switch h.opts.sourceStrategy {
	case SourceBuffered:
		return source.OpenBuffered(h.indexPath)
	case SourceMmap:
		return source.OpenMmap(h.indexPath)
	default:
		s, err := source.OpenMmap(h.indexPath)
		if err == nil {
			return s, nil
		}
		logger.Debugf("revlog: mmap open of %s failed (%v), falling back to buffered", h.indexPath, err)
		return source.OpenBuffered(h.indexPath)
	}
}

func (h *RevlogHandle) openDataStream() (*source.Stream, error) {
	switch h.opts.sourceStrategy {
	case SourceBuffered:
		return source.OpenBuffered(h.dataPath)
	case SourceMmap:
		return source.OpenMmap(h.dataPath)
	default:
		s, err := source.OpenMmap(h.dataPath)
		if err == nil {
			return s, nil
		}
		logger.Debugf("revlog: mmap open of %s failed (%v), falling back to buffered", h.dataPath, err)
		return source.OpenBuffered(h.dataPath)
	}
}

// initOutline builds the catalog on first call; subsequent calls are
// no-ops. A failure here leaves the handle unoutlined so a later call
// may retry, per spec.
func (h *RevlogHandle) initOutline() error {
	if h.outlined {
		return nil
	}

	stream, err := h.openIndexStream()
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrIndexIO, h.indexPath, err)
	}

	ds := stream.Sub(0, stream.Size())
	cat, err := index.Build(ds)
	ds.Done()
	if err != nil {
		stream.Close()
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}

	h.inline = cat.Inline
	h.baseRevisions = cat.BaseRevisions
	h.recordOffsets = cat.RecordOffsets

	if h.opts.reuseIndexOpens {
		h.indexStream = stream
	} else {
		stream.Close()
	}
	h.outlined = true
	logger.Debugf("revlog: outlined %s: %d revisions, inline=%v", h.indexPath, len(h.baseRevisions), h.inline)
	return nil
}

// withIndexSource runs fn with a DataSource covering the whole index
// stream, reusing the pinned stream from initOutline when
// WithReuseIndexOpens is set, else opening and closing a fresh one.
func (h *RevlogHandle) withIndexSource(fn func(source.DataSource) error) error {
	if err := h.initOutline(); err != nil {
		return err
	}
	if h.indexStream != nil {
		ds := h.indexStream.Sub(0, h.indexStream.Size())
		defer ds.Done()
		return fn(ds)
	}
	stream, err := h.openIndexStream()
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrIndexIO, h.indexPath, err)
	}
	defer stream.Close()
	ds := stream.Sub(0, stream.Size())
	defer ds.Done()
	return fn(ds)
}

// IsInline forces initOutline and reports whether the revlog uses the
// inline (index+payload interleaved) layout.
func (h *RevlogHandle) IsInline() (bool, error) {
	if err := h.initOutline(); err != nil {
		return false, err
	}
	return h.inline, nil
}

// Count forces initOutline and returns the number of revisions.
func (h *RevlogHandle) Count() (int, error) {
	if err := h.initOutline(); err != nil {
		return 0, err
	}
	return len(h.baseRevisions), nil
}

// resolve turns Tip into N-1 and validates ri is in range, returning
// ErrInvalidRevision otherwise.
func (h *RevlogHandle) resolve(ri RevisionIndex) (RevisionIndex, error) {
	n, err := h.Count()
	if err != nil {
		return 0, err
	}
	if ri == Tip {
		if n == 0 {
			return 0, fmt.Errorf("%w: Tip requested on an empty revlog", ErrInvalidRevision)
		}
		return RevisionIndex(n - 1), nil
	}
	if ri < 0 || int(ri) >= n {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidRevision, ri, n)
	}
	return ri, nil
}

func (h *RevlogHandle) recordOffset(ri RevisionIndex) int64 {
	return index.RecordOffset(int(ri), h.inline, h.recordOffsets)
}

// decodeRecord reads the full 64-byte record for ri from the index
// stream.
func (h *RevlogHandle) decodeRecord(ri RevisionIndex) (index.Record, error) {
	var rec index.Record
	err := h.withIndexSource(func(ds source.DataSource) error {
		if err := ds.Seek(h.recordOffset(ri)); err != nil {
			return fmt.Errorf("%w: seeking to revision %d: %v", ErrIndexIO, ri, err)
		}
		var derr error
		rec, derr = index.Decode(ds, ri == 0)
		return derr
	})
	if err != nil {
		return index.Record{}, err
	}
	return rec, nil
}

// DataLength reads actual_len from revision ri's record (index-only).
func (h *RevlogHandle) DataLength(ri RevisionIndex) (int32, error) {
	ri, err := h.resolve(ri)
	if err != nil {
		return 0, err
	}
	rec, err := h.decodeRecord(ri)
	if err != nil {
		return 0, err
	}
	return rec.ActualLen, nil
}

// NodeID reads the 20-byte node id from revision ri's record.
func (h *RevlogHandle) NodeID(ri RevisionIndex) (NodeID, error) {
	ri, err := h.resolve(ri)
	if err != nil {
		return NodeID{}, err
	}
	rec, err := h.decodeRecord(ri)
	if err != nil {
		return NodeID{}, err
	}
	return NodeID(rec.NodeID), nil
}

// LinkRevision reads the link-revision field from revision ri's record.
func (h *RevlogHandle) LinkRevision(ri RevisionIndex) (RevisionIndex, error) {
	ri, err := h.resolve(ri)
	if err != nil {
		return 0, err
	}
	rec, err := h.decodeRecord(ri)
	if err != nil {
		return 0, err
	}
	return RevisionIndex(rec.LinkRevision), nil
}

// FindRevisionIndex linearly scans the index for a revision whose node
// id equals nodeID, per spec.md §4.5 and the REDESIGN FLAG in §9 (no
// secondary sorted index). Returns BadRevision if absent.
func (h *RevlogHandle) FindRevisionIndex(nodeID NodeID) (RevisionIndex, error) {
	n, err := h.Count()
	if err != nil {
		return BadRevision, err
	}
	var found RevisionIndex = BadRevision
	err = h.withIndexSource(func(ds source.DataSource) error {
		if err := ds.Seek(0); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexIO, err)
		}
		for ri := 0; ri < n; ri++ {
			if err := ds.Seek(h.recordOffset(RevisionIndex(ri))); err != nil {
				return fmt.Errorf("%w: seeking to revision %d: %v", ErrIndexIO, ri, err)
			}
			rec, derr := index.Decode(ds, ri == 0)
			if derr != nil {
				return derr
			}
			if NodeID(rec.NodeID) == nodeID {
				found = RevisionIndex(ri)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return BadRevision, err
	}
	return found, nil
}

// NewEntryOffset returns the logical offset a writer should put in the
// header of a freshly appended record.
func (h *RevlogHandle) NewEntryOffset() (int64, error) {
	n, err := h.Count()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	last := RevisionIndex(n - 1)
	rec, err := h.decodeRecord(last)
	if err != nil {
		return 0, err
	}
	if last == 0 {
		return int64(rec.CompressedLen), nil
	}
	return rec.OffsetInData + int64(rec.CompressedLen), nil
}

// OnRevisionAdded extends the in-memory catalog after a writer appends
// a new record, so a handle that outlived the append stays coherent
// without reparsing the whole index. It is a minor state-fixup hook;
// the full write path is out of scope.
func (h *RevlogHandle) OnRevisionAdded(ri RevisionIndex, baseRev RevisionIndex, physOffset int64) error {
	if !h.outlined {
		// Nothing materialized yet; the next initOutline will pick up the
		// appended record from disk.
		return nil
	}
	n := len(h.baseRevisions)
	if int(ri) != n {
		return fmt.Errorf("%w: appended revision %d, expected %d", ErrInconsistentAppend, ri, n)
	}
	if baseRev < 0 || int(baseRev) > n {
		return fmt.Errorf("%w: base revision %d out of range [0, %d]", ErrInconsistentAppend, baseRev, n)
	}
	h.baseRevisions = append(h.baseRevisions, int32(baseRev))
	if h.inline {
		offset, err := indexOffsetToInt(physOffset)
		if err != nil {
			return err
		}
		h.recordOffsets = append(h.recordOffsets, offset)
	}
	return nil
}

// indexOffsetToInt narrows a physical offset to int32, mirroring
// index.Build's own overflow guard for the append hook's caller-supplied
// offset.
func indexOffsetToInt(off int64) (int32, error) {
	if off < 0 || off > 1<<31-1 {
		return 0, fmt.Errorf("%w: appended record offset %d does not fit in 32 bits", ErrCorruptIndex, off)
	}
	return int32(off), nil
}
