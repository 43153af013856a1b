package stream

import (
	"errors"
	"io"
	"strings"
)

// stallingReader never makes progress
type stallingReader struct{}

func (stallingReader) Read(p []byte) (int, error) { return 0, nil }

// closeRecorder counts Close calls
type closeRecorder struct {
	io.Reader
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

// hiccupReader returns (0, nil) before every chunk it delivers
type hiccupReader struct {
	r      io.Reader
	stalls int
	hiccup bool
}

func (h *hiccupReader) Read(p []byte) (int, error) {
	h.hiccup = !h.hiccup
	if h.hiccup {
		h.stalls++
		return 0, nil
	}
	return h.r.Read(p)
}

// trackedFactory records every stream it hands out
type trackedFactory struct {
	data    string
	wrap    func(io.Reader) io.Reader
	opened  int
	streams []*closeRecorder
	openErr error
}

func newTracked(data string) *trackedFactory {
	return &trackedFactory{data: data}
}

func (f *trackedFactory) Open() (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++
	var r io.Reader = strings.NewReader(f.data)
	if f.wrap != nil {
		r = f.wrap(r)
	}
	rec := &closeRecorder{Reader: r}
	f.streams = append(f.streams, rec)
	return rec, nil
}

func (f *trackedFactory) closedAll() bool {
	for _, s := range f.streams {
		if s.closed != 1 {
			return false
		}
	}
	return true
}

// failingReader delivers data, then fails with err
type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

var errUpstream = errors.New("upstream failure")
