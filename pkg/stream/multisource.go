package stream

import "io"

// maxEmptyReads bounds consecutive (0, nil) reads from one source before
// the read gives up with io.ErrNoProgress.
const maxEmptyReads = 100

// MultiSourceFactory concatenates the streams of several factories
type MultiSourceFactory struct {
	sources []Factory
}

// NewMultiSourceFactory creates a factory whose streams yield the content of
// every source, in order. The slice is shared with the caller, not copied;
// a source replaced before a stream reaches it is the one read.
func NewMultiSourceFactory(sources []Factory) (*MultiSourceFactory, error) {
	if sources == nil {
		return nil, invalidArgument("sources is nil")
	}
	for i, src := range sources {
		if src == nil {
			return nil, invalidArgument("source %d is nil", i)
		}
	}
	return &MultiSourceFactory{sources: sources}, nil
}

// Len returns the number of sources
func (f *MultiSourceFactory) Len() int {
	return len(f.sources)
}

// Open returns a new MultiSourceStream. No source is opened until the first Read.
func (f *MultiSourceFactory) Open() (io.ReadCloser, error) {
	return &MultiSourceStream{sources: f.sources}, nil
}

// MultiSourceStream reads its sources to completion one after another.
// It is read-only and not safe for concurrent use.
type MultiSourceStream struct {
	sources []Factory
	idx     int
	cur     io.ReadCloser
	pos     int64
	closed  bool
}

// Read fills p from the current source and moves on to the following
// sources as each one reports io.EOF. It returns io.EOF only once every
// source is exhausted and nothing was read in this call.
func (s *MultiSourceStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}

	n := 0
	empty := 0
	for n < len(p) {
		if s.cur == nil {
			if s.idx >= len(s.sources) {
				break
			}
			src := s.sources[s.idx]
			if src == nil {
				return n, invalidArgument("source %d is nil", s.idx)
			}
			cur, err := src.Open()
			if err != nil {
				return n, err
			}
			s.cur = cur
			empty = 0
		}

		m, err := s.cur.Read(p[n:])
		n += m
		s.pos += int64(m)

		if err == io.EOF {
			cerr := s.cur.Close()
			s.cur = nil
			s.idx++
			if cerr != nil {
				return n, cerr
			}
			continue
		}
		if err != nil {
			return n, err
		}
		if m == 0 {
			empty++
			if empty >= maxEmptyReads {
				return n, io.ErrNoProgress
			}
		} else {
			empty = 0
		}
	}

	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadByte reads a single byte
func (s *MultiSourceStream) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(s, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Position returns the number of bytes read so far
func (s *MultiSourceStream) Position() int64 {
	return s.pos
}

// Seek only accepts requests that resolve to the current position
func (s *MultiSourceStream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		if offset == s.pos {
			return s.pos, nil
		}
	case io.SeekCurrent:
		if offset == 0 {
			return s.pos, nil
		}
	}
	return s.pos, ErrUnsupported
}

// Write is not supported
func (s *MultiSourceStream) Write(p []byte) (int, error) {
	return 0, ErrUnsupported
}

// Flush is not supported
func (s *MultiSourceStream) Flush() error {
	return ErrUnsupported
}

// Truncate is not supported
func (s *MultiSourceStream) Truncate(size int64) error {
	return ErrUnsupported
}

// Close releases the currently open source. Sources that were never opened
// are left alone.
func (s *MultiSourceStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cur == nil {
		return nil
	}
	err := s.cur.Close()
	s.cur = nil
	return err
}
