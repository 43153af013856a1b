package content

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// SourceKind identifies the variant held by a Source
type SourceKind int

const (
	// SourceBytes is an in-memory byte slice
	SourceBytes SourceKind = iota + 1
	// SourceStream is a seekable stream
	SourceStream
	// SourceDocument is a parsed XML document
	SourceDocument
	// SourceFactory is a stream factory
	SourceFactory
)

func (k SourceKind) String() string {
	switch k {
	case SourceBytes:
		return "bytes"
	case SourceStream:
		return "stream"
	case SourceDocument:
		return "document"
	case SourceFactory:
		return "factory"
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// Source is the content a part can be loaded from.
// The zero value is an empty source and is rejected by every loader.
type Source struct {
	kind    SourceKind
	data    []byte
	stream  io.ReadSeeker
	doc     *etree.Document
	factory stream.Factory
}

// FromBytes returns a source over data. The slice is not copied.
func FromBytes(data []byte) Source {
	return Source{kind: SourceBytes, data: data}
}

// FromStream returns a source over a seekable stream. Every retrieval reads
// from offset 0. Streams that also implement io.ReaderAt yield independent
// readers; otherwise retrievals share the stream and must not overlap.
func FromStream(rs io.ReadSeeker) Source {
	return Source{kind: SourceStream, stream: rs}
}

// FromDocument returns a source that serialises doc on every retrieval
func FromDocument(doc *etree.Document) Source {
	return Source{kind: SourceDocument, doc: doc}
}

// FromFactory returns a source backed by f
func FromFactory(f stream.Factory) Source {
	return Source{kind: SourceFactory, factory: f}
}

// Kind returns the variant of the source
func (s Source) Kind() SourceKind {
	return s.kind
}

// IsZero reports whether s is the empty source
func (s Source) IsZero() bool {
	return s.kind == 0
}

// Factory resolves the source into a stream factory
func (s Source) Factory() (stream.Factory, error) {
	switch s.kind {
	case SourceBytes:
		return stream.NewBytesFactory(s.data)
	case SourceStream:
		if s.stream == nil {
			return nil, fmt.Errorf("%w: stream source is nil", stream.ErrInvalidArgument)
		}
		return seekerFactory{rs: s.stream}, nil
	case SourceDocument:
		if s.doc == nil {
			return nil, fmt.Errorf("%w: document source is nil", stream.ErrInvalidArgument)
		}
		doc := s.doc
		return stream.FactoryFunc(func() (io.ReadCloser, error) {
			data, err := doc.WriteToBytes()
			if err != nil {
				return nil, fmt.Errorf("failed to serialize document: %w", err)
			}
			return io.NopCloser(bytes.NewReader(data)), nil
		}), nil
	case SourceFactory:
		if s.factory == nil {
			return nil, fmt.Errorf("%w: factory source is nil", stream.ErrInvalidArgument)
		}
		return s.factory, nil
	}
	return nil, fmt.Errorf("%w: empty source", stream.ErrInvalidArgument)
}

type seekerFactory struct {
	rs io.ReadSeeker
}

func (f seekerFactory) Open() (io.ReadCloser, error) {
	if ra, ok := f.rs.(io.ReaderAt); ok {
		return io.NopCloser(io.NewSectionReader(ra, 0, math.MaxInt64)), nil
	}
	if _, err := f.rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind stream: %w", err)
	}
	return io.NopCloser(f.rs), nil
}
