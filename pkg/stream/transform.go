package stream

import (
	"compress/flate"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/valyala/bytebufferpool"

	"github.com/sirosfoundation/go-payload/pkg/compression"
)

// Transform selects the byte-level transformation applied by a TransformFactory
type Transform int

const (
	// Base64Encode encodes raw bytes as RFC 4648 standard Base64
	Base64Encode Transform = iota + 1
	// Base64Decode decodes RFC 4648 standard Base64 into raw bytes
	Base64Decode
	// GzipCompress compresses with GZIP
	GzipCompress
	// GzipDecompress decompresses GZIP
	GzipDecompress
	// SnappyEncode compresses with the snappy framing format
	SnappyEncode
	// SnappyDecode decompresses the snappy framing format
	SnappyDecode
)

var transformNames = map[Transform]string{
	Base64Encode:   "base64-encode",
	Base64Decode:   "base64-decode",
	GzipCompress:   "gzip-compress",
	GzipDecompress: "gzip-decompress",
	SnappyEncode:   "snappy-encode",
	SnappyDecode:   "snappy-decode",
}

func (t Transform) String() string {
	if name, ok := transformNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Transform(%d)", int(t))
}

// ParseTransform returns the Transform with the given name, as printed by String
func ParseTransform(name string) (Transform, error) {
	for t, n := range transformNames {
		if n == name {
			return t, nil
		}
	}
	return 0, invalidArgument("unknown transform %q", name)
}

// encodeChunkSize is how much is pulled from the source per encoder round
const encodeChunkSize = 32 * 1024

// TransformFactory applies a Transform to every stream of its source factory
type TransformFactory struct {
	src  Factory
	kind Transform
}

// NewTransformFactory creates a factory that transforms the streams of src
func NewTransformFactory(src Factory, kind Transform) (*TransformFactory, error) {
	if src == nil {
		return nil, invalidArgument("source factory is nil")
	}
	if _, ok := transformNames[kind]; !ok {
		return nil, invalidArgument("unknown transform %d", int(kind))
	}
	return &TransformFactory{src: src, kind: kind}, nil
}

// NewBase64Encoder returns a factory yielding the Base64 encoding of src
func NewBase64Encoder(src Factory) (*TransformFactory, error) {
	return NewTransformFactory(src, Base64Encode)
}

// NewBase64Decoder returns a factory yielding the raw bytes of Base64 encoded src
func NewBase64Decoder(src Factory) (*TransformFactory, error) {
	return NewTransformFactory(src, Base64Decode)
}

// NewGzipCompressor returns a factory yielding src compressed with GZIP
func NewGzipCompressor(src Factory) (*TransformFactory, error) {
	return NewTransformFactory(src, GzipCompress)
}

// NewGzipDecompressor returns a factory yielding the decompressed content of GZIP src
func NewGzipDecompressor(src Factory) (*TransformFactory, error) {
	return NewTransformFactory(src, GzipDecompress)
}

// NewSnappyEncoder returns a factory yielding src in the snappy framing format
func NewSnappyEncoder(src Factory) (*TransformFactory, error) {
	return NewTransformFactory(src, SnappyEncode)
}

// NewSnappyDecoder returns a factory yielding the decoded content of snappy framed src
func NewSnappyDecoder(src Factory) (*TransformFactory, error) {
	return NewTransformFactory(src, SnappyDecode)
}

// Kind returns the transform applied by the factory
func (f *TransformFactory) Kind() Transform {
	return f.kind
}

// Open opens the source and wraps it in a fresh transform.
// The returned stream implements Position and ReadByte.
func (f *TransformFactory) Open() (io.ReadCloser, error) {
	src, err := f.src.Open()
	if err != nil {
		return nil, err
	}

	ts := &TransformStream{src: src}
	var r io.Reader
	switch f.kind {
	case Base64Encode:
		enc := newEncodeReader(src, func(w io.Writer) (io.WriteCloser, error) {
			return base64.NewEncoder(base64.StdEncoding, w), nil
		})
		r, ts.release = enc, enc.release
	case GzipCompress:
		enc := newEncodeReader(src, compression.NewCompressor().NewWriter)
		r, ts.release = enc, enc.release
	case SnappyEncode:
		enc := newEncodeReader(src, compression.Snappy{}.NewWriter)
		r, ts.release = enc, enc.release
	case Base64Decode:
		r = &decodeReader{src: src, newReader: func(r io.Reader) (io.Reader, error) {
			return base64.NewDecoder(base64.StdEncoding, r), nil
		}}
	case GzipDecompress:
		r = &decodeReader{src: src, newReader: func(r io.Reader) (io.Reader, error) {
			return compression.NewCompressor().NewReader(r)
		}}
	case SnappyDecode:
		r = &decodeReader{src: src, newReader: func(r io.Reader) (io.Reader, error) {
			return compression.Snappy{}.NewReader(r)
		}}
	}
	ts.PositionReader = NewPositionReader(r)
	return ts, nil
}

// TransformStream is the stream returned by TransformFactory.Open
type TransformStream struct {
	*PositionReader
	src     io.Closer
	release func()
	closed  bool
}

// Close releases the source stream. The transform is dropped without
// being flushed, so a partially read stream leaves no trailing output behind.
func (s *TransformStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.release != nil {
		s.release()
	}
	return s.src.Close()
}

// encodeReader drives a write-side encoder from the read side: it pulls a
// chunk from the source, pushes it through the encoder into a pooled buffer
// and serves the buffer to the caller.
type encodeReader struct {
	src   io.Reader
	enc   io.WriteCloser
	newFn func(io.Writer) (io.WriteCloser, error)
	buf   *bytebufferpool.ByteBuffer
	off   int
	chunk []byte
	empty int
	done  bool
	err   error
}

func newEncodeReader(src io.Reader, newFn func(io.Writer) (io.WriteCloser, error)) *encodeReader {
	return &encodeReader{src: src, newFn: newFn}
}

func (r *encodeReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.buf == nil {
		if r.done {
			return 0, r.err
		}
		r.buf = bytebufferpool.Get()
		enc, err := r.newFn(r.buf)
		if err != nil {
			r.finish(err)
			return 0, err
		}
		r.enc = enc
		r.chunk = make([]byte, encodeChunkSize)
	}

	for {
		if r.off < len(r.buf.B) {
			n := copy(p, r.buf.B[r.off:])
			r.off += n
			return n, nil
		}
		if r.done {
			err := r.err
			r.release()
			return 0, err
		}

		r.buf.Reset()
		r.off = 0

		m, err := r.src.Read(r.chunk)
		if m > 0 {
			r.empty = 0
			if _, werr := r.enc.Write(r.chunk[:m]); werr != nil {
				r.done, r.err = true, werr
				continue
			}
		}
		switch {
		case err == io.EOF:
			r.done, r.err = true, io.EOF
			if cerr := r.enc.Close(); cerr != nil {
				r.err = cerr
			}
		case err != nil:
			r.done, r.err = true, err
		case m == 0:
			r.empty++
			if r.empty >= maxEmptyReads {
				r.done, r.err = true, io.ErrNoProgress
			}
		}
	}
}

func (r *encodeReader) finish(err error) {
	r.done, r.err = true, err
	r.release()
}

// release returns the staging buffer to the pool
func (r *encodeReader) release() {
	if r.buf != nil {
		bytebufferpool.Put(r.buf)
		r.buf = nil
		r.off = 0
	}
	if !r.done {
		r.done, r.err = true, ErrClosed
	}
}

// decodeReader constructs its decoder on the first Read so that Open never
// touches the source.
type decodeReader struct {
	src       io.Reader
	newReader func(io.Reader) (io.Reader, error)
	dec       io.Reader
}

func (r *decodeReader) Read(p []byte) (int, error) {
	if r.dec == nil {
		dec, err := r.newReader(r.src)
		if err != nil {
			return 0, classifyDecodeError(err)
		}
		r.dec = dec
	}
	n, err := r.dec.Read(p)
	if err != nil && err != io.EOF {
		err = classifyDecodeError(err)
	}
	return n, err
}

// classifyDecodeError marks errors caused by the encoded input itself as
// ErrMalformedContent and leaves I/O errors from the source untouched.
func classifyDecodeError(err error) error {
	var b64Err base64.CorruptInputError
	var flateErr flate.CorruptInputError
	switch {
	case errors.As(err, &b64Err),
		errors.As(err, &flateErr),
		errors.Is(err, gzip.ErrHeader),
		errors.Is(err, gzip.ErrChecksum),
		errors.Is(err, snappy.ErrCorrupt),
		errors.Is(err, snappy.ErrUnsupported),
		errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %w", ErrMalformedContent, err)
	}
	return err
}
