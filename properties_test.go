package revlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeRevisionChain() []testRev {
	return s3RevsShared()
}

// s3RevsShared builds the same three-revision chain used across several
// property tests: a six-byte literal base, a one-byte patch, and a
// second one-byte patch, mirroring the S3/S4 scenarios.
func s3RevsShared() []testRev {
	base := append([]byte{0x75}, []byte("abcdef")...)
	patch1 := hunkBytes(2, 4, 1, []byte{0x58}) // -> "abXef"
	patch2 := hunkBytes(3, 4, 1, []byte{0x59}) // -> "abXYf"
	return []testRev{
		{baseRev: 0, actualLen: 6, p1: -1, p2: -1, payload: base},
		{baseRev: 0, actualLen: 5, p1: 0, p2: -1, payload: patch1},
		{baseRev: 0, actualLen: 5, p1: 1, p2: -1, payload: patch2},
	}
}

// Property 1: count stability.
func TestPropertyCountStability(t *testing.T) {
	dir := t.TempDir()
	path := writeInlineRevlog(t, dir, threeRevisionChain())
	h := Open(path)

	n1, err := h.Count()
	require.NoError(t, err)
	n2, err := h.Count()
	require.NoError(t, err)
	assert.Equal(t, n1, n2)
	assert.Equal(t, 3, n1)
}

// Property 2: base monotonicity.
func TestPropertyBaseMonotonicity(t *testing.T) {
	dir := t.TempDir()
	path := writeInlineRevlog(t, dir, threeRevisionChain())
	h := Open(path)

	n, err := h.Count()
	require.NoError(t, err)
	for ri := 0; ri < n; ri++ {
		b := h.baseRevisions[ri]
		assert.GreaterOrEqual(t, b, int32(0))
		assert.LessOrEqual(t, b, int32(ri))
	}
}

// Property 3: nodeid round-trip.
func TestPropertyNodeIDRoundTrip(t *testing.T) {
	dir := t.TempDir()
	recs := threeRevisionChain()
	for i := range recs {
		recs[i].nodeID[0] = byte(i + 1)
	}
	path := writeInlineRevlog(t, dir, recs)
	h := Open(path)

	n, err := h.Count()
	require.NoError(t, err)
	for ri := 0; ri < n; ri++ {
		id, err := h.NodeID(RevisionIndex(ri))
		require.NoError(t, err)
		found, err := h.FindRevisionIndex(id)
		require.NoError(t, err)
		assert.Equal(t, RevisionIndex(ri), found)
	}
}

// Property 4: iterate_range(0, N-1) and iterate_set([0..N-1]) produce
// identical inspector-visible sequences.
func TestPropertyRangeCoversSet(t *testing.T) {
	dir := t.TempDir()
	path := writeInlineRevlog(t, dir, threeRevisionChain())

	h1 := Open(path)
	colRange := &collector{}
	ok, err := h1.IterateRange(0, Tip, true, colRange)
	require.NoError(t, err)
	require.True(t, ok)

	h2 := Open(path)
	colSet := &collector{}
	ok, err = h2.IterateSet([]RevisionIndex{0, 1, 2}, true, colSet)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, len(colRange.visits), len(colSet.visits))
	for i := range colRange.visits {
		assert.Equal(t, colRange.visits[i].ri, colSet.visits[i].ri)
		assert.Equal(t, colRange.visits[i].data, colSet.visits[i].data)
	}
}

// Property 5: snapshot determinism — the bytes delivered for a revision
// do not depend on where the traversal started, as long as each handle
// is fresh (no cross-call cache to conflate the comparison).
func TestPropertySnapshotDeterminism(t *testing.T) {
	dir := t.TempDir()
	path := writeInlineRevlog(t, dir, threeRevisionChain())

	starts := []RevisionIndex{0, 0, 2}
	// Every call ends at revision 2; only the last reported visit (the
	// one for revision 2) is compared, since starting earlier reports
	// the intervening revisions too. starts[1] and starts[2] are both
	// base_revisions[2]=0 and the revision itself, forcing the engine
	// to rebuild from the base internally on each fresh handle.
	var results [][]byte
	for i := range starts {
		h := Open(path)
		col := &collector{}
		ok, err := h.IterateRange(starts[i], 2, true, col)
		require.NoError(t, err)
		require.True(t, ok)
		require.NotEmpty(t, col.visits)
		last := col.visits[len(col.visits)-1]
		require.Equal(t, RevisionIndex(2), last.ri)
		results = append(results, last.data)
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
	assert.Equal(t, []byte("abXYf"), results[0])
}

// Property 6: empty-patch identity.
func TestPropertyEmptyPatchIdentity(t *testing.T) {
	dir := t.TempDir()
	base := append([]byte{0x75}, []byte("abcdef")...)
	recs := []testRev{
		{baseRev: 0, actualLen: 6, p1: -1, p2: -1, payload: base},
		{baseRev: 0, actualLen: 6, p1: 0, p2: -1, payload: nil}, // empty patch: identical to rev 0
	}
	path := writeInlineRevlog(t, dir, recs)
	h := Open(path)

	col := &collector{}
	ok, err := h.IterateRange(0, 1, true, col)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, col.visits, 2)
	assert.Equal(t, col.visits[0].data, col.visits[1].data)
	assert.Equal(t, col.visits[0].actualLen, col.visits[1].actualLen)
}

// Property 7: cancellation. Once StopRequested returns true after
// visiting revision k, no later revision is visited.
func TestPropertyCancellation(t *testing.T) {
	dir := t.TempDir()
	recs := threeRevisionChain()
	path := writeInlineRevlog(t, dir, recs)
	h := Open(path)

	col := &collector{hasStopAfter: true, stopAfter: 0}
	ok, err := h.IterateRange(0, 2, true, col)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Len(t, col.visits, 1)
	assert.Equal(t, RevisionIndex(0), col.visits[0].ri)
	assert.True(t, col.started)
	assert.True(t, col.finished)
}

// Property 8: layout equivalence — inline and separate encodings of the
// same logical revlog produce identical inspector sequences.
func TestPropertyLayoutEquivalence(t *testing.T) {
	dir := t.TempDir()
	recs := threeRevisionChain()

	inlinePath := writeInlineRevlog(t, dir, recs)
	separatePath := writeSeparateRevlog(t, dir, recs)

	hInline := Open(inlinePath)
	colInline := &collector{}
	ok, err := hInline.IterateRange(0, Tip, true, colInline)
	require.NoError(t, err)
	require.True(t, ok)

	hSeparate := Open(separatePath)
	colSeparate := &collector{}
	ok, err = hSeparate.IterateRange(0, Tip, true, colSeparate)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, len(colInline.visits), len(colSeparate.visits))
	for i := range colInline.visits {
		assert.Equal(t, colInline.visits[i].data, colSeparate.visits[i].data)
		assert.Equal(t, colInline.visits[i].actualLen, colSeparate.visits[i].actualLen)
	}
}

// TestMaxPatchChainBoundRejectsLongRebuild confirms WithMaxPatchChain is
// enforced on the rebuild-from-base path (no usable cache to reuse).
func TestMaxPatchChainBoundRejectsLongRebuild(t *testing.T) {
	dir := t.TempDir()
	path := writeInlineRevlog(t, dir, threeRevisionChain())

	h := Open(path, WithMaxPatchChain(1))
	col := &collector{}
	ok, err := h.IterateRange(2, 2, true, col)
	assert.False(t, ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPatchChainTooLong)
	assert.Empty(t, col.visits)
}

// TestIterateSetRejectsOutOfRange pins the tightened REDESIGN FLAG
// bounds check: an index >= N is rejected before any revision is
// visited, closing the off-by-one the reference implementation had.
func TestIterateSetRejectsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := writeInlineRevlog(t, dir, threeRevisionChain())
	h := Open(path)

	col := &collector{}
	ok, err := h.IterateSet([]RevisionIndex{0, 3}, true, col)
	assert.False(t, ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRevision)
	assert.Empty(t, col.visits)
}
