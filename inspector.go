package revlog

import (
	"sync/atomic"

	"github.com/hgrevlog/revlog/source"
)

// Inspector is the core's outward API: a pull-driven callback invoked
// once per visited revision by TraversalEngine. Implementations decode
// changesets, manifests, or file blobs; the core has no knowledge of
// that schema.
//
// payload is a single-pass lazy byte reader valid only until Next
// returns; an Inspector must not retain it past the call. When the
// traversal was started with needData=false, or the revision's payload
// is empty, payload is a zero-length source rather than nil.
type Inspector interface {
	Next(ri RevisionIndex, actualLen int32, baseRevision, linkRevision, parent1, parent2 RevisionIndex, nodeID NodeID, payload source.DataSource) error
}

// CancelHandle is handed to a Lifecycle's Start/Finish so external code
// (a signal handler, a UI cancel button) can request early termination
// of an in-progress traversal; the engine itself only ever reads it
// through Lifecycle.StopRequested.
type CancelHandle struct {
	stop atomic.Bool
}

// RequestStop marks the handle as cancelled. It may be called from any
// goroutine, including while the traversal is polling StopRequested.
func (c *CancelHandle) RequestStop() {
	c.stop.Store(true)
}

// Stopped reports whether RequestStop has been called.
func (c *CancelHandle) Stopped() bool {
	return c.stop.Load()
}

// Lifecycle is an optional capability an Inspector may implement. The
// engine detects it via a type assertion at iterate_* entry (the Go
// analogue of the source's dynamic capability query) rather than
// requiring every Inspector to implement no-op versions.
type Lifecycle interface {
	// Start is called once per IterateRange call, before its first Next,
	// with an estimate of the number of revisions about to be visited and
	// a handle the implementation may use to request cancellation
	// asynchronously. IterateSet makes one IterateRange call per run of
	// consecutive indices, so Start/Finish pairs repeat once per run.
	Start(totalWork int, cancel *CancelHandle)
	// Finish is called once per IterateRange call, after its last Next,
	// or after a stop request takes effect, or after an error aborts it.
	Finish(cancel *CancelHandle)
	// StopRequested is polled by the engine after every Next call; once
	// it returns true the engine closes the current range without
	// visiting further revisions.
	StopRequested() bool
}
