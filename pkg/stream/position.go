package stream

import "io"

// PositionReader counts the bytes delivered by a non-seekable reader.
//
// Position reports the number of bytes returned to the caller so far,
// independent of how much the wrapped reader consumed from its own source.
type PositionReader struct {
	r   io.Reader
	pos int64
}

// NewPositionReader wraps r
func NewPositionReader(r io.Reader) *PositionReader {
	return &PositionReader{r: r}
}

// Read forwards to the wrapped reader and advances the position by n.
// Short reads are passed through as they are.
func (p *PositionReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.pos += int64(n)
	return n, err
}

// ReadByte reads a single byte. At end of stream it returns io.EOF and
// leaves the position unchanged.
func (p *PositionReader) ReadByte() (byte, error) {
	var b [1]byte
	for i := 0; i < maxEmptyReads; i++ {
		n, err := p.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
	return 0, io.ErrNoProgress
}

// Position returns the number of bytes read so far
func (p *PositionReader) Position() int64 {
	return p.pos
}

// Seek is not supported
func (p *PositionReader) Seek(offset int64, whence int) (int64, error) {
	return p.pos, ErrUnsupported
}

// Close does nothing.
//
// The wrapped reader is usually an encoder or decoder half way through its
// input. Closing it would flush buffered output that nobody reads, so the
// close is suppressed here and releasing the underlying source is left to
// the owner of that source.
func (p *PositionReader) Close() error {
	return nil
}
