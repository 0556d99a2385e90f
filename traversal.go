package revlog

import (
	"fmt"

	"github.com/hgrevlog/revlog/index"
	"github.com/hgrevlog/revlog/patch"
	"github.com/hgrevlog/revlog/source"
)

// IterateRange visits every revision in [start, end], in ascending
// order, invoking inspector.Next once per revision. Tip in either
// endpoint resolves to N-1. It returns false if the inspector's
// Lifecycle signalled a stop before end was reached; err is non-nil on
// any I/O, parse, or inspector failure, in which case the returned bool
// is always false.
func (h *RevlogHandle) IterateRange(start, end RevisionIndex, needData bool, inspector Inspector) (bool, error) {
	n, err := h.Count()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return true, nil
	}
	start, err = h.resolve(start)
	if err != nil {
		return false, err
	}
	end, err = h.resolve(end)
	if err != nil {
		return false, err
	}
	if start > end {
		return true, nil
	}

	if h.traversing {
		return false, fmt.Errorf("revlog: %s: a traversal is already active on this handle", h.indexPath)
	}
	h.traversing = true
	defer func() { h.traversing = false }()

	lifecycle, hasLifecycle := inspector.(Lifecycle)
	var cancel *CancelHandle
	if hasLifecycle {
		cancel = &CancelHandle{}
		lifecycle.Start(int(end-start+1), cancel)
		defer lifecycle.Finish(cancel)
	}

	indexStream, err := h.openIndexStream()
	if err != nil {
		return false, fmt.Errorf("%w: opening %s: %v", ErrIndexIO, h.indexPath, err)
	}
	defer indexStream.Close()
	indexDS := indexStream.Sub(0, indexStream.Size())
	defer indexDS.Done()

	var dataStream *source.Stream
	if needData && !h.inline {
		dataStream, err = h.openDataStream()
		if err != nil {
			return false, fmt.Errorf("%w: opening %s: %v", ErrDataIO, h.dataPath, err)
		}
		defer dataStream.Close()
	}

	inflater := source.NewInflater()
	defer inflater.Close()

	logger.Debugf("revlog: %s: iterating [%d,%d] needData=%v", h.indexPath, start, end, needData)
	return h.runRange(start, end, needData, inspector, lifecycle, cancel, indexDS, indexStream, dataStream, inflater)
}

// runRange is the single engine both IterateRange and IterateSet's
// per-run calls drive: it decides the chosen starting point (honoring
// the snapshot-reuse cache), then walks records forward from that point,
// materializing every payload on the way but reporting to the inspector
// only for i >= start.
func (h *RevlogHandle) runRange(start, end RevisionIndex, needData bool, inspector Inspector, lifecycle Lifecycle, cancel *CancelHandle, indexDS source.DataSource, indexStream *source.Stream, dataStream *source.Stream, inflater *source.Inflater) (bool, error) {
	beginAt := start
	var snapshot []byte

	if needData {
		b := RevisionIndex(h.baseRevisions[start])
		switch {
		case b == start:
			h.hasLast = false
			h.lastSnapshot = nil
		case h.hasLast && b <= h.lastRi && h.lastRi < start:
			beginAt = h.lastRi + 1
			snapshot = h.lastSnapshot
		default:
			if chain := int(start - b); chain > h.opts.maxPatchChain {
				return false, fmt.Errorf("%w: revision %d needs %d patches replayed from base %d (bound %d)", ErrPatchChainTooLong, start, chain, b, h.opts.maxPatchChain)
			}
			beginAt = b
			h.hasLast = false
			h.lastSnapshot = nil
		}
	}

	for i := beginAt; i <= end; i++ {
		if err := indexDS.Seek(h.recordOffset(i)); err != nil {
			return false, fmt.Errorf("%w: seeking to revision %d: %v", ErrIndexIO, i, err)
		}
		rec, err := index.Decode(indexDS, i == 0)
		if err != nil {
			return false, fmt.Errorf("%w: decoding revision %d: %v", ErrCorruptIndex, i, err)
		}

		var current []byte
		if needData {
			isPatch := rec.BaseRevision != int32(i)

			var chunk source.DataSource
			payloadIOErr := ErrDataIO
			if h.inline {
				chunk = indexStream.Sub(h.recordOffset(i)+index.RecordSize, int64(rec.CompressedLen))
				payloadIOErr = ErrIndexIO
			} else {
				chunk = dataStream.Sub(rec.OffsetInData, int64(rec.CompressedLen))
			}

			declaredLen := int64(rec.ActualLen)
			if isPatch {
				declaredLen = -1
			}
			payload, err := source.DecodePayload(inflater, chunk, int(rec.CompressedLen), declaredLen)
			if err != nil {
				return false, fmt.Errorf("%w: decoding payload for revision %d: %v", ErrCorruptIndex, i, err)
			}

			switch {
			case isPatch && payload.IsEmpty():
				if snapshot == nil || int32(len(snapshot)) != rec.ActualLen {
					payload.Done()
					return false, fmt.Errorf("%w: revision %d is an empty patch with no matching cached snapshot", ErrCorruptIndex, i)
				}
				// Alias rather than copy: current and the rolling snapshot
				// are the same backing array for this step.
				current = snapshot
			case isPatch:
				raw, err := payload.Bytes()
				if err != nil {
					payload.Done()
					return false, fmt.Errorf("%w: reading patch payload for revision %d: %v", payloadIOErr, i, err)
				}
				hunks, err := patch.ParseHunks(raw)
				if err != nil {
					payload.Done()
					return false, fmt.Errorf("%w: parsing patch for revision %d: %v", ErrCorruptIndex, i, err)
				}
				current, err = patch.Apply(snapshot, hunks, int(rec.ActualLen))
				if err != nil {
					payload.Done()
					return false, fmt.Errorf("%w: applying patch for revision %d: %v", ErrCorruptIndex, i, err)
				}
			default:
				raw, err := payload.Bytes()
				if err != nil {
					payload.Done()
					return false, fmt.Errorf("%w: reading base payload for revision %d: %v", payloadIOErr, i, err)
				}
				current = raw
			}
			payload.Done()
		}

		if i >= start {
			var reportSrc source.DataSource
			if needData {
				reportSrc = source.NewMemSource(current)
			} else {
				reportSrc = source.NewMemSource(nil)
			}
			err := inspector.Next(i, rec.ActualLen, RevisionIndex(rec.BaseRevision), RevisionIndex(rec.LinkRevision), RevisionIndex(rec.Parent1), RevisionIndex(rec.Parent2), NodeID(rec.NodeID), reportSrc)
			reportSrc.Done()
			if err != nil {
				return false, fmt.Errorf("%w: %v", ErrInspector, err)
			}
		}

		if needData {
			snapshot = current
			h.lastSnapshot = current
			h.lastRi = i
			h.hasLast = true
		}

		if lifecycle != nil && lifecycle.StopRequested() {
			return false, nil
		}
	}

	return true, nil
}

// IterateSet visits an ascending set of revisions, in ascending order,
// skipping any index not present in ris. It groups maximal runs of
// consecutive indices and drives IterateRange on each run internally,
// so the snapshot-reuse optimization applies within a run; the cache
// is cleared before every run after the first, so no run reuses the
// snapshot left by the previous one. Every element of ris is validated against [0, N) (Tip
// resolves to N-1) before any revision is visited — tightened from the
// reference implementation's off-by-one bounds check.
func (h *RevlogHandle) IterateSet(ris []RevisionIndex, needData bool, inspector Inspector) (bool, error) {
	n, err := h.Count()
	if err != nil {
		return false, err
	}
	if n == 0 || len(ris) == 0 {
		return true, nil
	}

	resolved := make([]RevisionIndex, len(ris))
	for i, r := range ris {
		rr, err := h.resolve(r)
		if err != nil {
			return false, err
		}
		resolved[i] = rr
	}

	for start := 0; start < len(resolved); {
		end := start
		for end+1 < len(resolved) && resolved[end+1] == resolved[end]+1 {
			end++
		}
		if start > 0 {
			h.hasLast = false
			h.lastSnapshot = nil
		}
		ok, err := h.IterateRange(resolved[start], resolved[end], needData, inspector)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		start = end + 1
	}

	return true, nil
}
