package source

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomAccessReadAndSeek(t *testing.T) {
	data := []byte("0123456789abcdef")
	stream := NewStream(bytes.NewReader(data), int64(len(data)))
	ds := stream.Sub(4, 6) // "456789"

	b, err := ds.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('4'), b)

	rest, err := ds.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("56789"), rest)

	require.NoError(t, ds.Reset())
	buf := make([]byte, 3)
	require.NoError(t, ds.ReadBytes(buf, 0, 3))
	assert.Equal(t, []byte("456"), buf)

	require.NoError(t, ds.Seek(0))
	assert.False(t, ds.IsEmpty())
	require.NoError(t, ds.Skip(6))
	assert.True(t, ds.IsEmpty())
}

func TestRandomAccessLongSeekEscapesRange(t *testing.T) {
	data := []byte("0123456789abcdef")
	stream := NewStream(bytes.NewReader(data), int64(len(data)))
	ds := stream.Sub(4, 2) // bounded to "45"

	require.NoError(t, ds.LongSeek(10))
	b, err := ds.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)
}

func TestRandomAccessReadUint32(t *testing.T) {
	data := []byte{0x00, 0x00, 0x01, 0x02, 0xAA}
	stream := NewStream(bytes.NewReader(data), int64(len(data)))
	ds := stream.Sub(0, int64(len(data)))
	v, err := ds.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0102), v)
}
