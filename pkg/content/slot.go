package content

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

var (
	// ErrReleased is returned by every Handler method after Close
	ErrReleased = errors.New("content handler has been released")
	// ErrNoParts is returned when binding a handler to a slot without parts
	ErrNoParts = fmt.Errorf("%w: slot does not contain any parts", stream.ErrInvalidArgument)
	// ErrEmptyPart is returned when retrieving a part that was never loaded
	ErrEmptyPart = errors.New("part has no content")
)

// Slot is an external payload container with addressable parts
type Slot interface {
	// Parts returns the number of parts
	Parts() int
	// Part returns the part at index i
	Part(i int) (Part, error)
	// Close releases the slot
	Close() error
}

// Part is one addressable unit of content in a Slot
type Part interface {
	// LoadFrom replaces the content of the part
	LoadFrom(src Source) error
	// Retrieve returns a new stream over the content. The caller closes it.
	Retrieve() (io.ReadCloser, error)
}

// MemoryPart keeps its content as a stream factory in process memory
type MemoryPart struct {
	mu      sync.RWMutex
	factory stream.Factory
}

// LoadFrom resolves src and makes it the content of the part
func (p *MemoryPart) LoadFrom(src Source) error {
	f, err := src.Factory()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.factory = f
	p.mu.Unlock()
	return nil
}

// Retrieve opens a stream over the current content
func (p *MemoryPart) Retrieve() (io.ReadCloser, error) {
	p.mu.RLock()
	f := p.factory
	p.mu.RUnlock()
	if f == nil {
		return nil, ErrEmptyPart
	}
	return f.Open()
}

// MemorySlot is a Slot made of MemoryParts. It holds no external resources,
// so parts stay readable after Close.
type MemorySlot struct {
	parts []*MemoryPart
}

// NewMemorySlot creates a slot with n empty parts
func NewMemorySlot(n int) *MemorySlot {
	if n < 0 {
		n = 0
	}
	parts := make([]*MemoryPart, n)
	for i := range parts {
		parts[i] = &MemoryPart{}
	}
	return &MemorySlot{parts: parts}
}

// Parts returns the number of parts
func (s *MemorySlot) Parts() int {
	return len(s.parts)
}

// Part returns the part at index i
func (s *MemorySlot) Part(i int) (Part, error) {
	if i < 0 || i >= len(s.parts) {
		return nil, fmt.Errorf("%w: part index %d out of range [0,%d)", stream.ErrInvalidArgument, i, len(s.parts))
	}
	return s.parts[i], nil
}

// Close is a no-op
func (s *MemorySlot) Close() error {
	return nil
}
