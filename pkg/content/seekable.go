package content

import (
	"fmt"
	"io"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

const (
	seekableChunkSize = 32 * 1024
	maxEmptyReads     = 100
)

// NewSeekable returns r if it already implements io.ReadSeeker. Otherwise
// it returns a read-only seeker that buffers r in memory as far as reads
// and seeks require. Seeking relative to the end drains r completely.
//
// The returned seeker also implements io.ReaderAt.
func NewSeekable(r io.Reader) io.ReadSeeker {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs
	}
	return &Seekable{src: r}
}

// Seekable buffers a forward-only reader so that it can be re-read
type Seekable struct {
	src    io.Reader
	buf    []byte
	pos    int64
	eof    bool
	err    error
	tmp    []byte
	closed bool
}

// fill buffers the source until at least n bytes are held or the source ends
func (s *Seekable) fill(n int64) error {
	empty := 0
	for int64(len(s.buf)) < n && !s.eof {
		if s.err != nil {
			return s.err
		}
		if s.tmp == nil {
			s.tmp = make([]byte, seekableChunkSize)
		}
		m, err := s.src.Read(s.tmp)
		s.buf = append(s.buf, s.tmp[:m]...)
		switch {
		case err == io.EOF:
			s.eof = true
		case err != nil:
			s.err = err
			return err
		case m == 0:
			empty++
			if empty >= maxEmptyReads {
				return io.ErrNoProgress
			}
		default:
			empty = 0
		}
	}
	return nil
}

// Read reads from the current position
func (s *Seekable) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

// ReadAt reads len(p) bytes at offset off without moving the position
func (s *Seekable) ReadAt(p []byte, off int64) (int, error) {
	if s.closed {
		return 0, stream.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", stream.ErrInvalidArgument, off)
	}
	if len(p) == 0 {
		return 0, nil
	}
	want := off + int64(len(p))
	if want < off {
		want = int64(^uint64(0) >> 1)
	}
	ferr := s.fill(want)

	n := 0
	if off < int64(len(s.buf)) {
		n = copy(p, s.buf[off:])
	}
	if n == len(p) {
		return n, nil
	}
	if ferr != nil {
		return n, ferr
	}
	return n, io.EOF
}

// Seek sets the position for the next Read
func (s *Seekable) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		if err := s.fill(int64(^uint64(0) >> 1)); err != nil {
			return s.pos, err
		}
		abs = int64(len(s.buf)) + offset
	default:
		return s.pos, fmt.Errorf("%w: invalid whence %d", stream.ErrInvalidArgument, whence)
	}
	if abs < 0 {
		return s.pos, fmt.Errorf("%w: negative position %d", stream.ErrInvalidArgument, abs)
	}
	s.pos = abs
	return abs, nil
}

// Buffered returns the number of bytes pulled from the source so far
func (s *Seekable) Buffered() int {
	return len(s.buf)
}

// Close closes the source if it is an io.Closer and drops the buffer
func (s *Seekable) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.buf = nil
	s.tmp = nil
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
