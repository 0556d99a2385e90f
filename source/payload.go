package source

import "fmt"

// Tag bytes a revision payload's first byte is checked against before
// any decompression is attempted.
const (
	tagZlib     = 0x78 // standard zlib header byte; payload is deflate-compressed
	tagVerbatim = 0x75 // 'u': payload is literal bytes, tag stripped
)

// DecodePayload classifies and wraps one revision's raw compressed
// chunk (chunk, exactly compressedLen bytes read from the data stream)
// into the DataSource an Inspector or the patch engine will read from.
//
// declaredLen is the expected decompressed length when known (a base
// snapshot's actual_len) or -1 when not (a delta's decompressed size
// is only known once the patch is fully parsed).
//
// An empty chunk (compressedLen == 0) always yields an empty in-memory
// source: there is no tag byte to read, and both zlib and verbatim
// payloads can legally be empty for a revision that repeats its
// predecessor exactly.
func DecodePayload(inflater *Inflater, chunk DataSource, compressedLen int, declaredLen int64) (DataSource, error) {
	if compressedLen == 0 {
		return NewMemSource(nil), nil
	}

	tag, err := chunk.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("source: read payload tag byte: %w", err)
	}

	switch tag {
	case tagZlib:
		if err := chunk.Seek(0); err != nil {
			return nil, fmt.Errorf("source: rewind before inflate: %w", err)
		}
		cr, ok := chunk.(compressedReader)
		if !ok {
			return nil, fmt.Errorf("source: chunk source %T cannot back an inflater", chunk)
		}
		return newInflateSource(inflater, cr, declaredLen)
	case tagVerbatim:
		rest, err := chunk.Bytes()
		if err != nil {
			return nil, fmt.Errorf("source: read verbatim payload: %w", err)
		}
		return NewMemSource(rest), nil
	default:
		// Any other first byte: the chunk is literal, tag byte included.
		// Mercurial treats unrecognized tags leniently rather than
		// rejecting the revision outright.
		rest, err := chunk.Bytes()
		if err != nil {
			return nil, fmt.Errorf("source: read raw payload: %w", err)
		}
		buf := make([]byte, 0, len(rest)+1)
		buf = append(buf, tag)
		buf = append(buf, rest...)
		return NewMemSource(buf), nil
	}
}
