package revlog

import "math"

// SourceStrategy selects how a RevlogHandle backs its index and data
// streams.
type SourceStrategy int

const (
	// SourceAuto mmaps the .i/.d files when they are opened from paths on
	// disk and falls back to a buffered file reader when mmap setup
	// fails (e.g. a zero-length file, or a filesystem that disallows
	// mmap). This is the default.
	SourceAuto SourceStrategy = iota
	// SourceBuffered always uses a buffered *os.File reader, never mmap.
	SourceBuffered
	// SourceMmap requires mmap; if it cannot be set up, the first
	// operation that opens the index or data stream fails.
	SourceMmap
)

// options holds the configured options after applying a number of
// Option funcs.
type options struct {
	sourceStrategy  SourceStrategy
	maxPatchChain   int
	reuseIndexOpens bool
}

// Option describes an option affecting behavior when opening or
// traversing a RevlogHandle.
type Option func(*options)

// WithSourceStrategy overrides the default mmap-preferring byte-source
// strategy used to back the index and data streams.
func WithSourceStrategy(s SourceStrategy) Option {
	return func(o *options) {
		o.sourceStrategy = s
	}
}

// WithMaxPatchChain bounds how many patches the traversal engine may
// replay from a base snapshot in one rebuild (the snapshot-reuse cache
// miss path). Exceeding it fails with ErrPatchChainTooLong instead of
// silently doing unbounded work. The default imposes no practical
// bound.
func WithMaxPatchChain(n int) Option {
	return func(o *options) {
		o.maxPatchChain = n
	}
}

// WithReuseIndexOpens lets FindRevisionIndex and the other index-only
// accessors reuse the handle's already-open index stream instead of
// reopening the underlying file for every call.
func WithReuseIndexOpens(reuse bool) Option {
	return func(o *options) {
		o.reuseIndexOpens = reuse
	}
}

func applyOptions(opts ...Option) options {
	o := options{
		sourceStrategy:  SourceAuto,
		maxPatchChain:   math.MaxInt32,
		reuseIndexOpens: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
