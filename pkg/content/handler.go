package content

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// Handler converts the content of part 0 of a Slot between strings,
// Base64 text and streams. It is not safe for concurrent use.
type Handler struct {
	slot     Slot
	logger   *slog.Logger
	released bool
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler binds a handler to slot, which must contain at least one part
func NewHandler(slot Slot, opts ...HandlerOption) (*Handler, error) {
	if slot == nil {
		return nil, fmt.Errorf("%w: slot is nil", stream.ErrInvalidArgument)
	}
	if slot.Parts() == 0 {
		return nil, ErrNoParts
	}

	h := &Handler{
		slot:   slot,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Close releases the slot. Calling Close more than once is allowed.
func (h *Handler) Close() error {
	if h.released {
		return nil
	}
	h.released = true
	return h.slot.Close()
}

func (h *Handler) part() (Part, error) {
	if h.released {
		return nil, ErrReleased
	}
	return h.slot.Part(0)
}

// LoadFromString loads the UTF-8 bytes of text
func (h *Handler) LoadFromString(text string) error {
	if h.released {
		return ErrReleased
	}
	return h.LoadFromStream(bytes.NewReader([]byte(text)))
}

// LoadFromBase64 decodes text and loads the raw bytes.
// Invalid Base64 leaves the part untouched and returns stream.ErrMalformedContent.
func (h *Handler) LoadFromBase64(text string) error {
	if h.released {
		return ErrReleased
	}

	src, err := stream.NewBytesFactory([]byte(text))
	if err != nil {
		return err
	}
	dec, err := stream.NewBase64Decoder(src)
	if err != nil {
		return err
	}
	r, err := dec.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	var staging bytes.Buffer
	staging.Grow(len(text) / 4 * 3)
	if _, err := staging.ReadFrom(r); err != nil {
		return fmt.Errorf("failed to decode base64 content: %w", err)
	}
	return h.LoadFromStream(bytes.NewReader(staging.Bytes()))
}

// LoadFromStream loads r. Forward-only readers are buffered with NewSeekable
// so that the part can be read more than once.
func (h *Handler) LoadFromStream(r io.Reader) error {
	if h.released {
		return ErrReleased
	}
	if r == nil {
		return fmt.Errorf("%w: stream is nil", stream.ErrInvalidArgument)
	}

	rs := NewSeekable(r)
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind stream: %w", err)
	}
	return h.LoadFrom(FromStream(rs))
}

// LoadFrom loads part 0 from src
func (h *Handler) LoadFrom(src Source) error {
	if h.released {
		return ErrReleased
	}
	if src.IsZero() {
		return fmt.Errorf("%w: source is empty", stream.ErrInvalidArgument)
	}

	part, err := h.part()
	if err != nil {
		return err
	}
	if err := part.LoadFrom(src); err != nil {
		return fmt.Errorf("failed to load part: %w", err)
	}
	h.logger.Debug("loaded content", "part", 0, "source", src.Kind().String())
	return nil
}

// RetrieveAsStream returns a new stream over part 0. The caller must close it.
func (h *Handler) RetrieveAsStream() (io.ReadCloser, error) {
	part, err := h.part()
	if err != nil {
		return nil, err
	}
	return part.Retrieve()
}

// RetrieveAsString returns the content of part 0 as text
func (h *Handler) RetrieveAsString() (string, error) {
	r, err := h.RetrieveAsStream()
	if err != nil {
		return "", err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	h.logger.Debug("retrieved content", "part", 0, "bytes", len(data))
	return string(data), nil
}

// RetrieveAsBase64 returns the content of part 0 encoded as standard Base64
func (h *Handler) RetrieveAsBase64() (string, error) {
	part, err := h.part()
	if err != nil {
		return "", err
	}
	src, err := stream.NewPartFactory(part)
	if err != nil {
		return "", err
	}
	enc, err := stream.NewBase64Encoder(src)
	if err != nil {
		return "", err
	}
	r, err := enc.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return "", fmt.Errorf("failed to encode content: %w", err)
	}
	h.logger.Debug("retrieved content as base64", "part", 0, "bytes", out.Len())
	return out.String(), nil
}

// RootElementName returns the local name of the first element of the XML
// content of part 0. Content without any element yields stream.ErrMalformedContent.
func (h *Handler) RootElementName() (string, error) {
	r, err := h.RetrieveAsStream()
	if err != nil {
		return "", err
	}
	defer r.Close()

	xr := NewXMLReader(r)
	for !xr.IsStartElement() {
		if err := xr.Advance(); err != nil {
			return "", err
		}
	}
	return xr.LocalName(), nil
}

// LoadContentFromString loads text into part 0 of slot
func LoadContentFromString(slot Slot, text string) error {
	return withHandler(slot, func(h *Handler) error {
		return h.LoadFromString(text)
	})
}

// LoadContentFromBase64 decodes text into part 0 of slot
func LoadContentFromBase64(slot Slot, text string) error {
	return withHandler(slot, func(h *Handler) error {
		return h.LoadFromBase64(text)
	})
}

// LoadContentFromStream loads r into part 0 of slot
func LoadContentFromStream(slot Slot, r io.Reader) error {
	return withHandler(slot, func(h *Handler) error {
		return h.LoadFromStream(r)
	})
}

// RetrieveContentAsString returns part 0 of slot as text
func RetrieveContentAsString(slot Slot) (string, error) {
	var s string
	err := withHandler(slot, func(h *Handler) (err error) {
		s, err = h.RetrieveAsString()
		return err
	})
	return s, err
}

// RetrieveContentAsBase64 returns part 0 of slot as Base64 text
func RetrieveContentAsBase64(slot Slot) (string, error) {
	var s string
	err := withHandler(slot, func(h *Handler) (err error) {
		s, err = h.RetrieveAsBase64()
		return err
	})
	return s, err
}

// RetrieveContentAsStream returns a stream over part 0 of slot. The slot is
// closed before returning, so the stream is only usable with slots whose
// parts outlive Close, such as MemorySlot.
func RetrieveContentAsStream(slot Slot) (io.ReadCloser, error) {
	var r io.ReadCloser
	err := withHandler(slot, func(h *Handler) (err error) {
		r, err = h.RetrieveAsStream()
		return err
	})
	if err != nil && r != nil {
		r.Close()
		return nil, err
	}
	return r, err
}

// RootNodeName returns the root element name of part 0 of slot
func RootNodeName(slot Slot) (string, error) {
	var name string
	err := withHandler(slot, func(h *Handler) (err error) {
		name, err = h.RootElementName()
		return err
	})
	return name, err
}

func withHandler(slot Slot, fn func(*Handler) error) error {
	h, err := NewHandler(slot)
	if err != nil {
		return err
	}
	err = fn(h)
	if cerr := h.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
