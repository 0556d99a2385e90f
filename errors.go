package revlog

import "errors"

// ErrInvalidRevision is returned when a requested revision index is
// outside [0, N) and is not Tip.
var ErrInvalidRevision = errors.New("revlog: invalid revision")

// ErrCorruptIndex is returned for parse failures, impossible field
// values, inline-offset overflow, patch-size mismatches, and record-size
// mismatches. The handle remains usable; a later call may reparse.
var ErrCorruptIndex = errors.New("revlog: corrupt index")

// ErrIndexIO tags an I/O failure on the .i stream.
var ErrIndexIO = errors.New("revlog: index i/o error")

// ErrDataIO tags an I/O failure on the .d stream.
var ErrDataIO = errors.New("revlog: data i/o error")

// ErrInconsistentAppend is returned when OnRevisionAdded's preconditions
// are violated.
var ErrInconsistentAppend = errors.New("revlog: inconsistent append")

// ErrInspector wraps an error returned by an Inspector's callback.
var ErrInspector = errors.New("revlog: inspector error")

// ErrPatchChainTooLong is returned when reconstructing a revision from
// its base would replay more patches than WithMaxPatchChain allows.
var ErrPatchChainTooLong = errors.New("revlog: patch chain exceeds configured bound")
