package mime

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"short", "abc", "abc"},
		{"exactly one line", strings.Repeat("a", 76), strings.Repeat("a", 76)},
		{"one over", strings.Repeat("a", 77), strings.Repeat("a", 76) + "\r\na"},
		{"two full lines", strings.Repeat("b", 152), strings.Repeat("b", 76) + "\r\n" + strings.Repeat("b", 76)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := foldLines(bytesFactory(t, []byte(tt.input)))
			assert.Equal(t, tt.want, string(readFactory(t, f)))

			r, err := f.Open()
			require.NoError(t, err)
			defer r.Close()
			data, err := io.ReadAll(iotest.OneByteReader(r))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestFoldLines_LargeInput(t *testing.T) {
	input := bytes.Repeat([]byte("0123456789"), 2000)
	data := readFactory(t, foldLines(bytesFactory(t, input)))

	lines := strings.Split(string(data), "\r\n")
	for i, line := range lines[:len(lines)-1] {
		assert.Len(t, line, 76, "line %d", i)
	}
	assert.LessOrEqual(t, len(lines[len(lines)-1]), 76)
	assert.Equal(t, string(input), strings.Join(lines, ""))
}

func TestFoldLines_SourceError(t *testing.T) {
	f := foldLines(bytesFactory(t, []byte("x")))
	r, err := f.Open()
	require.NoError(t, err)
	r.(*foldingReader).src = io.NopCloser(iotest.ErrReader(io.ErrUnexpectedEOF))

	_, err = io.ReadAll(r)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
