package mime

import (
	"io"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// maxLineLength is the longest encoded line allowed by RFC 2045
const maxLineLength = 76

const lineBreak = "\r\n"

// foldLines breaks every stream of f into CRLF-terminated lines of at
// most maxLineLength bytes. No line break follows the last line.
func foldLines(f stream.Factory) stream.Factory {
	return stream.FactoryFunc(func() (io.ReadCloser, error) {
		src, err := f.Open()
		if err != nil {
			return nil, err
		}
		return &foldingReader{src: src, chunk: make([]byte, 4*1024)}, nil
	})
}

type foldingReader struct {
	src   io.ReadCloser
	chunk []byte
	buf   []byte
	col   int
	brk   int
	err   error
}

func (f *foldingReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if f.brk > 0 {
			c := copy(p[n:], lineBreak[len(lineBreak)-f.brk:])
			f.brk -= c
			n += c
			continue
		}
		if len(f.buf) == 0 {
			if f.err != nil || n > 0 {
				break
			}
			m, err := f.src.Read(f.chunk)
			f.buf = f.chunk[:m]
			f.err = err
			if m == 0 && err == nil {
				return 0, nil
			}
			continue
		}
		// a break is only written once more data is known to follow
		if f.col == maxLineLength {
			f.col = 0
			f.brk = len(lineBreak)
			continue
		}
		c := copy(p[n:], f.buf[:min(len(f.buf), maxLineLength-f.col)])
		f.buf = f.buf[c:]
		f.col += c
		n += c
	}
	if n > 0 {
		return n, nil
	}
	return 0, f.err
}

func (f *foldingReader) Close() error {
	return f.src.Close()
}
