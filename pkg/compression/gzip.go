package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"mime"
	"strings"
)

const (
	// CompressionTypeGzip is the standard GZIP compression
	CompressionTypeGzip = "application/gzip"
)

// Codec turns a byte stream into its encoded form and back
type Codec interface {
	// NewWriter returns a writer that encodes into w. Close flushes the trailer.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader returns a reader that decodes r
	NewReader(r io.Reader) (io.ReadCloser, error)
	// ContentType is the media type of the encoded form
	ContentType() string
}

// Compressor handles GZIP payload compression
type Compressor struct {
	compressionLevel int
}

// NewCompressor creates a new compressor with default compression level
func NewCompressor() *Compressor {
	return &Compressor{
		compressionLevel: gzip.DefaultCompression,
	}
}

// NewCompressorWithLevel creates a new compressor with specified compression level
func NewCompressorWithLevel(level int) *Compressor {
	return &Compressor{
		compressionLevel: level,
	}
}

// NewWriter returns a GZIP writer on top of w
func (c *Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	writer, err := gzip.NewWriterLevel(w, c.compressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	return writer, nil
}

// NewReader returns a GZIP reader on top of r. The header is read immediately.
func (c *Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	reader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return reader, nil
}

// ContentType returns CompressionTypeGzip
func (c *Compressor) ContentType() string {
	return CompressionTypeGzip
}

// Compress compresses data using GZIP
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	return encodeAll(c, data)
}

// Decompress decompresses GZIP data
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	return decodeAll(c, data)
}

func encodeAll(codec Codec, data []byte) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := codec.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

func decodeAll(codec Codec, data []byte) ([]byte, error) {
	reader, err := codec.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read compressed data: %w", err)
	}

	return buf.Bytes(), nil
}

// ShouldCompress determines if payload should be compressed based on content type
func ShouldCompress(contentType string) bool {
	// Don't compress already compressed formats
	compressedTypes := map[string]bool{
		"application/gzip":    true,
		"application/zip":     true,
		"application/x-gzip":  true,
		CompressionTypeSnappy: true,
		"image/jpeg":          true,
		"image/png":           true,
		"video/mp4":           true,
		"audio/mp3":           true,
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return !compressedTypes[mediaType]
}

// ForContentType returns the codec that decodes payloads of the given compression type
func ForContentType(contentType string) (Codec, bool) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case CompressionTypeGzip, "application/x-gzip":
		return NewCompressor(), true
	case CompressionTypeSnappy:
		return Snappy{}, true
	}
	return nil, false
}
