package stream

import (
	"bytes"
	"io"
	"os"
)

// Factory produces independent streams over one logical source.
//
// Every call to Open returns a new stream positioned at the start of the
// source. The caller owns the returned stream and must close it.
type Factory interface {
	Open() (io.ReadCloser, error)
}

// FactoryFunc adapts an ordinary function to the Factory interface
type FactoryFunc func() (io.ReadCloser, error)

// Open calls f()
func (f FactoryFunc) Open() (io.ReadCloser, error) {
	return f()
}

// Retriever is implemented by content parts that hand out their payload as a stream
type Retriever interface {
	Retrieve() (io.ReadCloser, error)
}

// FileFactory opens a file for reading on every call
type FileFactory struct {
	path string
}

// NewFileFactory creates a factory for the file at path.
// The file is not touched until Open is called.
func NewFileFactory(path string) (*FileFactory, error) {
	if path == "" {
		return nil, invalidArgument("path is empty")
	}
	return &FileFactory{path: path}, nil
}

// Open opens the file read-only. Errors from the file system are returned unchanged.
func (f *FileFactory) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Path returns the file path
func (f *FileFactory) Path() string {
	return f.path
}

// BytesFactory serves a region of a caller-owned byte slice
type BytesFactory struct {
	buf    []byte
	offset int
	length int
}

// NewBytesFactory creates a factory over the whole of buf
func NewBytesFactory(buf []byte) (*BytesFactory, error) {
	if buf == nil {
		return nil, invalidArgument("buffer is nil")
	}
	return &BytesFactory{buf: buf, length: len(buf)}, nil
}

// NewRegionFactory creates a factory over buf[offset:offset+length].
// The slice is referenced, not copied.
func NewRegionFactory(buf []byte, offset, length int) (*BytesFactory, error) {
	if buf == nil {
		return nil, invalidArgument("buffer is nil")
	}
	if offset < 0 {
		return nil, invalidArgument("offset %d is less than zero", offset)
	}
	if length < 0 {
		return nil, invalidArgument("length %d is less than zero", length)
	}
	if offset > len(buf) || length > len(buf)-offset {
		return nil, invalidArgument("offset %d + length %d exceeds buffer size %d", offset, length, len(buf))
	}
	return &BytesFactory{buf: buf, offset: offset, length: length}, nil
}

// Open returns a reader over the region
func (f *BytesFactory) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.buf[f.offset : f.offset+f.length])), nil
}

// Len reports the number of bytes every stream from this factory yields
func (f *BytesFactory) Len() int {
	return f.length
}

// PartFactory retrieves streams from an external content part
type PartFactory struct {
	part Retriever
}

// NewPartFactory creates a factory that delegates to part
func NewPartFactory(part Retriever) (*PartFactory, error) {
	if part == nil {
		return nil, invalidArgument("part is nil")
	}
	return &PartFactory{part: part}, nil
}

// Open retrieves the part content as a stream
func (f *PartFactory) Open() (io.ReadCloser, error) {
	return f.part.Retrieve()
}
