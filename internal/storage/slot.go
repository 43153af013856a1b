package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/sirosfoundation/go-payload/pkg/content"
	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// Slot is a content.Slot whose parts live in a PayloadStore.
// Stored payloads outlive the slot; Close does not delete them.
type Slot struct {
	ctx    context.Context
	store  PayloadStore
	parts  []*Part
	logger *slog.Logger
}

// SlotOption configures a Slot
type SlotOption func(*Slot)

// WithLogger sets the logger used by the slot
func WithLogger(logger *slog.Logger) SlotOption {
	return func(s *Slot) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSlot creates a slot with n empty parts backed by store
func NewSlot(ctx context.Context, store PayloadStore, n int, opts ...SlotOption) (*Slot, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative part count %d", stream.ErrInvalidArgument, n)
	}
	return OpenSlot(ctx, store, make([]string, n), opts...)
}

// OpenSlot creates a slot whose parts refer to already stored payloads.
// An empty ID leaves that part empty.
func OpenSlot(ctx context.Context, store PayloadStore, ids []string, opts ...SlotOption) (*Slot, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is nil", stream.ErrInvalidArgument)
	}

	s := &Slot{
		ctx:    ctx,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parts = make([]*Part, len(ids))
	for i, id := range ids {
		s.parts[i] = &Part{
			slot: s,
			name: fmt.Sprintf("part-%d", i),
			id:   id,
		}
	}
	return s, nil
}

// Parts returns the number of parts
func (s *Slot) Parts() int {
	return len(s.parts)
}

// Part returns the part at index i
func (s *Slot) Part(i int) (content.Part, error) {
	if i < 0 || i >= len(s.parts) {
		return nil, fmt.Errorf("%w: part index %d out of range [0,%d)", stream.ErrInvalidArgument, i, len(s.parts))
	}
	return s.parts[i], nil
}

// IDs returns the payload ID of every part, empty for unloaded parts
func (s *Slot) IDs() []string {
	ids := make([]string, len(s.parts))
	for i, p := range s.parts {
		ids[i] = p.ID()
	}
	return ids
}

// Close is a no-op; the store is owned by the caller
func (s *Slot) Close() error {
	return nil
}

// Part is one part of a Slot
type Part struct {
	slot *Slot
	name string

	mu sync.RWMutex
	id string
}

// ID returns the ID of the stored payload, or "" if the part is empty
func (p *Part) ID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id
}

// LoadFrom stores the content of src as a new payload. The previous
// payload of the part is deleted.
func (p *Part) LoadFrom(src content.Source) error {
	f, err := src.Factory()
	if err != nil {
		return err
	}

	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer r.Close()

	id, err := p.slot.store.StorePayload(p.slot.ctx, p.name, r)
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", p.name, err)
	}

	p.mu.Lock()
	previous := p.id
	p.id = id
	p.mu.Unlock()

	p.slot.logger.Debug("stored part", "part", p.name, "id", id)

	if previous != "" {
		if err := p.slot.store.DeletePayload(p.slot.ctx, previous); err != nil {
			p.slot.logger.Warn("failed to delete replaced payload", "part", p.name, "id", previous, "error", err)
		}
	}
	return nil
}

// Retrieve opens the stored payload
func (p *Part) Retrieve() (io.ReadCloser, error) {
	id := p.ID()
	if id == "" {
		return nil, content.ErrEmptyPart
	}
	return p.slot.store.OpenPayload(p.slot.ctx, id)
}
