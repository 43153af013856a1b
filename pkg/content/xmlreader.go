package content

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// XMLReader is a forward-only cursor over the tokens of an XML stream.
// Content declaring an encoding other than UTF-8 is transcoded.
type XMLReader struct {
	src *sourceReader
	dec *xml.Decoder
	tok xml.Token
}

// sourceReader remembers the last read error of the underlying stream so
// that I/O failures can be told apart from content errors
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// NewXMLReader creates a reader positioned before the first token
func NewXMLReader(r io.Reader) *XMLReader {
	src := &sourceReader{r: r}
	dec := xml.NewDecoder(src)
	dec.CharsetReader = charset.NewReaderLabel
	return &XMLReader{src: src, dec: dec}
}

// Advance moves to the next token. Reaching the end of the content, a
// syntax error or an unknown encoding returns an error wrapping
// stream.ErrMalformedContent. Errors of the underlying reader are returned
// unchanged.
func (x *XMLReader) Advance() error {
	tok, err := x.dec.Token()
	if err != nil {
		x.tok = nil
		switch {
		case x.src.err != nil && errors.Is(err, x.src.err):
			return err
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: no start element before end of content", stream.ErrMalformedContent)
		default:
			return fmt.Errorf("%w: %w", stream.ErrMalformedContent, err)
		}
	}
	x.tok = xml.CopyToken(tok)
	return nil
}

// IsStartElement reports whether the current token is a start element
func (x *XMLReader) IsStartElement() bool {
	_, ok := x.tok.(xml.StartElement)
	return ok
}

// LocalName returns the local name of the current element, or "" when the
// current token is not an element
func (x *XMLReader) LocalName() string {
	switch t := x.tok.(type) {
	case xml.StartElement:
		return t.Name.Local
	case xml.EndElement:
		return t.Name.Local
	}
	return ""
}
