package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a required argument is missing or out of range
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupported is returned for write, flush, truncate and seek on read-only streams
	ErrUnsupported = fmt.Errorf("read-only stream: %w", errors.ErrUnsupported)
	// ErrMalformedContent is returned when input cannot be decoded or parsed
	ErrMalformedContent = errors.New("malformed content")
	// ErrClosed is returned when reading from a stream after Close
	ErrClosed = errors.New("stream is closed")
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
