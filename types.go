// Package revlog reads the versioned-storage container format used by
// Mercurial: an append-only, content-addressed, delta-compressed
// sequence of revisions, stored either inline (index and payload
// interleaved in one file) or split across an index (.i) and data (.d)
// file pair.
package revlog

import "encoding/hex"

// RevisionIndex is a dense, non-negative ordinal position of a revision
// within a revlog.
type RevisionIndex int32

// Tip resolves to N-1, the last revision in the revlog, at the point an
// operation is invoked.
const Tip RevisionIndex = -1

// BadRevision is returned by lookups that find nothing.
const BadRevision RevisionIndex = -2

// nodeIDSize is the length in bytes of a revision's opaque identifier.
const nodeIDSize = 20

// NodeID is a 20-byte opaque identifier for a revision. The core treats
// it as opaque bytes; it does not interpret or validate the hash.
type NodeID [nodeIDSize]byte

// NullID is the all-zero node id used to denote "no such revision" in
// parent fields.
var NullID NodeID

// String renders the node id as lowercase hex, the conventional
// Mercurial short-form representation.
func (n NodeID) String() string {
	return hex.EncodeToString(n[:])
}

// IsNull reports whether n is the all-zero id.
func (n NodeID) IsNull() bool {
	return n == NullID
}
