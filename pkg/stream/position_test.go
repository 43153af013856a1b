package stream

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionReader_ChunkedReads(t *testing.T) {
	data := bytes.Repeat([]byte("position"), 129) // 1032 bytes

	for _, chunk := range []int{1, 3, 64, 1000, 4096} {
		r := NewPositionReader(bytes.NewReader(data))
		buf := make([]byte, chunk)
		var got []byte
		for {
			n, err := r.Read(buf)
			got = append(got, buf[:n]...)
			assert.Equal(t, int64(len(got)), r.Position())
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
		}
		assert.Equal(t, data, got)
		assert.Equal(t, int64(len(data)), r.Position())

		// Reading past the end leaves the position alone
		n, err := r.Read(buf)
		assert.Equal(t, 0, n)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, int64(len(data)), r.Position())
	}
}

func TestPositionReader_ShortReads(t *testing.T) {
	r := NewPositionReader(iotest.HalfReader(bytes.NewReader([]byte("abcdefgh"))))

	buf := make([]byte, 8)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), r.Position())
}

func TestPositionReader_ReadByte(t *testing.T) {
	r := NewPositionReader(iotest.OneByteReader(bytes.NewReader([]byte("xy"))))

	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('x'), b)
	b, err = r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('y'), b)
	assert.Equal(t, int64(2), r.Position())

	_, err = r.ReadByte()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, int64(2), r.Position())
}

func TestPositionReader_ReadByteNoProgress(t *testing.T) {
	r := NewPositionReader(&stallingReader{})

	_, err := r.ReadByte()
	assert.ErrorIs(t, err, io.ErrNoProgress)
	assert.Equal(t, int64(0), r.Position())
}

func TestPositionReader_SeekUnsupported(t *testing.T) {
	r := NewPositionReader(bytes.NewReader([]byte("abc")))

	for _, whence := range []int{io.SeekStart, io.SeekCurrent, io.SeekEnd} {
		_, err := r.Seek(0, whence)
		assert.ErrorIs(t, err, ErrUnsupported)
	}
}

func TestPositionReader_CloseIsNoop(t *testing.T) {
	inner := &closeRecorder{Reader: bytes.NewReader([]byte("abc"))}
	r := NewPositionReader(inner)

	require.NoError(t, r.Close())
	assert.Equal(t, 0, inner.closed)

	// Still readable after Close
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}
