// Package mime implements streaming MIME multipart/related packages
package mime

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sirosfoundation/go-payload/pkg/content"
	"github.com/sirosfoundation/go-payload/pkg/stream"
)

const (
	// ContentTypeMultipartRelated is the MIME type for multipart/related
	ContentTypeMultipartRelated = "multipart/related"
	// ContentTypeApplicationXML is the MIME type for XML
	ContentTypeApplicationXML = "application/xml"
	// ContentTypeTextXML is the MIME type for text XML
	ContentTypeTextXML = "text/xml"
	// ContentTypeOctetStream is the default MIME type for parts
	ContentTypeOctetStream = "application/octet-stream"

	// TransferBinary sends the part unchanged
	TransferBinary = "binary"
	// Transfer8Bit sends the part unchanged and marks it as 8-bit text
	Transfer8Bit = "8bit"
	// TransferBase64 encodes the part as Base64 while streaming
	TransferBase64 = "base64"
)

// Message is a multipart/related package. Parts[0] is the root part.
type Message struct {
	Boundary    string
	ContentType string
	StartID     string
	Type        string
	Parts       []Part
}

// Part is one body part of a Message
type Part struct {
	ContentID       string
	ContentType     string
	ContentTransfer string
	CharacterSet    string
	Headers         textproto.MIMEHeader
	Source          stream.Factory
}

// NewMessage creates a package with root as its start part
func NewMessage(root Part, attachments ...Part) *Message {
	if root.ContentID == "" {
		root.ContentID = newContentID()
	}
	rootType := root.ContentType
	if mediaType, _, err := mime.ParseMediaType(rootType); err == nil {
		rootType = mediaType
	}

	parts := make([]Part, 0, 1+len(attachments))
	parts = append(parts, root)
	parts = append(parts, attachments...)

	return &Message{
		Boundary:    generateBoundary(),
		ContentType: ContentTypeMultipartRelated,
		StartID:     AddContentIDBrackets(root.ContentID),
		Type:        rootType,
		Parts:       parts,
	}
}

// MediaType returns the value for the Content-Type header of the package
func (m *Message) MediaType() string {
	// The start parameter references the Content-ID without angle brackets
	params := map[string]string{
		"boundary": m.Boundary,
	}
	if m.Type != "" {
		params["type"] = m.Type
	}
	if m.StartID != "" {
		params["start"] = GetContentIDWithoutBrackets(m.StartID)
	}
	return mime.FormatMediaType(m.ContentType, params)
}

// Factory returns a factory that streams the serialised package.
// Part sources are opened one at a time while the package is read.
func (m *Message) Factory() (stream.Factory, error) {
	if len(m.Parts) == 0 {
		return nil, fmt.Errorf("%w: message has no parts", stream.ErrInvalidArgument)
	}
	if m.Boundary == "" {
		return nil, fmt.Errorf("%w: boundary is empty", stream.ErrInvalidArgument)
	}

	sources := make([]stream.Factory, 0, 2*len(m.Parts)+1)
	for i, part := range m.Parts {
		if part.Source == nil {
			return nil, fmt.Errorf("%w: part %d has no source", stream.ErrInvalidArgument, i)
		}

		var head bytes.Buffer
		if i > 0 {
			head.WriteString("\r\n")
		}
		fmt.Fprintf(&head, "--%s\r\n", m.Boundary)
		writeHeader(&head, part.header())
		head.WriteString("\r\n")

		headF, err := stream.NewBytesFactory(head.Bytes())
		if err != nil {
			return nil, err
		}

		body := part.Source
		if strings.EqualFold(part.ContentTransfer, TransferBase64) {
			if body, err = stream.NewBase64Encoder(body); err != nil {
				return nil, err
			}
			body = foldLines(body)
		}
		sources = append(sources, headF, body)
	}

	tail, err := stream.NewBytesFactory([]byte(fmt.Sprintf("\r\n--%s--\r\n", m.Boundary)))
	if err != nil {
		return nil, err
	}
	sources = append(sources, tail)

	return stream.NewMultiSourceFactory(sources)
}

// Serialize reads the whole package into memory
func (m *Message) Serialize() ([]byte, string, error) {
	f, err := m.Factory()
	if err != nil {
		return nil, "", err
	}
	r, err := f.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open package: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize package: %w", err)
	}
	return data, m.MediaType(), nil
}

func (p *Part) header() textproto.MIMEHeader {
	header := textproto.MIMEHeader{}

	contentType := p.ContentType
	if contentType == "" {
		contentType = ContentTypeOctetStream
	}
	if p.CharacterSet != "" {
		contentType = fmt.Sprintf("%s; charset=%s", contentType, p.CharacterSet)
	}
	header.Set("Content-Type", contentType)

	transferEncoding := p.ContentTransfer
	if transferEncoding == "" {
		transferEncoding = TransferBinary
	}
	header.Set("Content-Transfer-Encoding", transferEncoding)

	if p.ContentID != "" {
		header.Set("Content-ID", AddContentIDBrackets(p.ContentID))
	}

	for key, values := range p.Headers {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	return header
}

// writeHeader writes header lines in the same order as mime/multipart.Writer
func writeHeader(w io.Writer, header textproto.MIMEHeader) {
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range header[k] {
			fmt.Fprintf(w, "%s: %s\r\n", k, v)
		}
	}
}

// Parse parses a MIME multipart message. Base64 parts are decoded.
func Parse(r io.Reader, contentType string) (*Message, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content type: %w", err)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("not a multipart message: %s", mediaType)
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("boundary not found in content type")
	}

	msg := &Message{
		Boundary:    boundary,
		ContentType: mediaType,
		StartID:     params["start"],
		Type:        params["type"],
	}

	reader := multipart.NewReader(r, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		parsed, err := parsePart(part)
		if err != nil {
			return nil, err
		}
		msg.Parts = append(msg.Parts, parsed)
	}

	if len(msg.Parts) == 0 {
		return nil, fmt.Errorf("no parts found in message")
	}

	return msg, nil
}

func parsePart(part *multipart.Part) (Part, error) {
	data, err := io.ReadAll(part)
	if err != nil {
		return Part{}, fmt.Errorf("failed to read part data: %w", err)
	}

	transfer := part.Header.Get("Content-Transfer-Encoding")
	if strings.EqualFold(transfer, TransferBase64) {
		if data, err = decodeBase64(data); err != nil {
			return Part{}, err
		}
	}

	source, err := stream.NewBytesFactory(data)
	if err != nil {
		return Part{}, err
	}

	parsed := Part{
		ContentID:       part.Header.Get("Content-ID"),
		ContentType:     part.Header.Get("Content-Type"),
		ContentTransfer: transfer,
		Headers:         textproto.MIMEHeader{},
		Source:          source,
	}
	if mediaType, params, err := mime.ParseMediaType(parsed.ContentType); err == nil {
		parsed.ContentType = mediaType
		parsed.CharacterSet = params["charset"]
	}

	for key, values := range part.Header {
		switch key {
		case "Content-Type", "Content-Id", "Content-Transfer-Encoding":
			continue
		}
		parsed.Headers[key] = append([]string(nil), values...)
	}

	return parsed, nil
}

func decodeBase64(data []byte) ([]byte, error) {
	src, err := stream.NewBytesFactory(data)
	if err != nil {
		return nil, err
	}
	dec, err := stream.NewBase64Decoder(src)
	if err != nil {
		return nil, err
	}
	r, err := dec.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 part: %w", err)
	}
	return decoded, nil
}

// Root returns the start part: the part matching StartID, or the first part
func (m *Message) Root() *Part {
	if m.StartID != "" {
		if p := m.GetPartByContentID(m.StartID); p != nil {
			return p
		}
	}
	if len(m.Parts) == 0 {
		return nil
	}
	return &m.Parts[0]
}

// Slot loads the parts into a content slot with the root part at index 0
func (m *Message) Slot() (*content.MemorySlot, error) {
	root := m.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: message has no parts", stream.ErrInvalidArgument)
	}

	ordered := []*Part{root}
	for i := range m.Parts {
		if &m.Parts[i] != root {
			ordered = append(ordered, &m.Parts[i])
		}
	}

	slot := content.NewMemorySlot(len(ordered))
	for i, p := range ordered {
		part, err := slot.Part(i)
		if err != nil {
			return nil, err
		}
		if err := part.LoadFrom(content.FromFactory(p.Source)); err != nil {
			return nil, fmt.Errorf("failed to load part %d: %w", i, err)
		}
	}
	return slot, nil
}

// GetPartByContentID finds a part by its Content-ID
// Handles various Content-ID formats (with/without cid:, angle brackets)
func (m *Message) GetPartByContentID(contentID string) *Part {
	normalizedSearch := normalizeContentID(contentID)

	for i := range m.Parts {
		if normalizeContentID(m.Parts[i].ContentID) == normalizedSearch {
			return &m.Parts[i]
		}
	}
	return nil
}

// CreatePart creates a part with a generated Content-ID
func CreatePart(source stream.Factory, contentType string) (Part, error) {
	return CreatePartWithID(source, contentType, newContentID())
}

// CreatePartWithID creates a part with a specific Content-ID
func CreatePartWithID(source stream.Factory, contentType, contentID string) (Part, error) {
	if source == nil {
		return Part{}, fmt.Errorf("%w: source is nil", stream.ErrInvalidArgument)
	}

	return Part{
		ContentID:       AddContentIDBrackets(contentID),
		ContentType:     contentType,
		ContentTransfer: TransferBinary,
		Headers:         make(textproto.MIMEHeader),
		Source:          source,
	}, nil
}

// normalizeContentID normalizes a Content-ID for comparison
func normalizeContentID(contentID string) string {
	contentID = strings.TrimPrefix(contentID, "cid:")
	contentID = strings.TrimPrefix(contentID, "<")
	contentID = strings.TrimSuffix(contentID, ">")
	return contentID
}

func newContentID() string {
	return fmt.Sprintf("<%s@payload.siros.org>", uuid.New().String())
}

// generateBoundary generates a MIME boundary string
func generateBoundary() string {
	return fmt.Sprintf("----=_Part_%s", strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// GetContentIDWithoutBrackets removes < and > from Content-ID
func GetContentIDWithoutBrackets(contentID string) string {
	contentID = strings.TrimPrefix(contentID, "<")
	contentID = strings.TrimSuffix(contentID, ">")
	return contentID
}

// AddContentIDBrackets adds < and > to Content-ID if not present
func AddContentIDBrackets(contentID string) string {
	if !strings.HasPrefix(contentID, "<") {
		contentID = "<" + contentID
	}
	if !strings.HasSuffix(contentID, ">") {
		contentID = contentID + ">"
	}
	return contentID
}
