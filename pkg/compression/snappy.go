package compression

import (
	"io"

	"github.com/golang/snappy"
)

// CompressionTypeSnappy is the media type of snappy framed streams
const CompressionTypeSnappy = "application/x-snappy-framed"

// Snappy encodes payloads with the snappy framing format
type Snappy struct{}

// NewWriter returns a buffered snappy writer on top of w
func (Snappy) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(w), nil
}

// NewReader returns a snappy frame reader on top of r
func (Snappy) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}

// ContentType returns CompressionTypeSnappy
func (Snappy) ContentType() string {
	return CompressionTypeSnappy
}

// Compress encodes data in the snappy framing format
func (s Snappy) Compress(data []byte) ([]byte, error) {
	return encodeAll(s, data)
}

// Decompress decodes snappy framed data
func (s Snappy) Decompress(data []byte) ([]byte, error) {
	return decodeAll(s, data)
}
