package mime

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-payload/pkg/content"
	"github.com/sirosfoundation/go-payload/pkg/stream"
)

const rootXML = `<?xml version="1.0" encoding="UTF-8"?><Invoice><ID>42</ID></Invoice>`

func bytesFactory(t *testing.T, data []byte) stream.Factory {
	t.Helper()
	f, err := stream.NewBytesFactory(data)
	require.NoError(t, err)
	return f
}

func readFactory(t *testing.T, f stream.Factory) []byte {
	t.Helper()
	r, err := f.Open()
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func newTestMessage(t *testing.T) (*Message, []byte) {
	t.Helper()
	binary := make([]byte, 5000)
	for i := range binary {
		binary[i] = byte(i * 7)
	}

	root, err := CreatePartWithID(bytesFactory(t, []byte(rootXML)), ContentTypeApplicationXML, "root@payload")
	require.NoError(t, err)
	root.CharacterSet = "UTF-8"
	root.ContentTransfer = Transfer8Bit

	attachment, err := CreatePartWithID(bytesFactory(t, binary), "image/png", "payload-1")
	require.NoError(t, err)
	attachment.ContentTransfer = TransferBase64
	attachment.Headers.Set("Content-Description", "scan")

	return NewMessage(root, attachment), binary
}

func TestCreatePart(t *testing.T) {
	part, err := CreatePart(bytesFactory(t, []byte("data")), "text/plain")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(part.ContentID, "<"))
	assert.True(t, strings.HasSuffix(part.ContentID, "@payload.siros.org>"))
	assert.Equal(t, "text/plain", part.ContentType)
	assert.Equal(t, TransferBinary, part.ContentTransfer)
	assert.NotNil(t, part.Headers)
	assert.Equal(t, []byte("data"), readFactory(t, part.Source))

	_, err = CreatePart(nil, "text/plain")
	assert.ErrorIs(t, err, stream.ErrInvalidArgument)
}

func TestCreatePartWithID_AddBrackets(t *testing.T) {
	part, err := CreatePartWithID(bytesFactory(t, []byte("x")), "text/plain", "id-without-brackets")
	require.NoError(t, err)
	assert.Equal(t, "<id-without-brackets>", part.ContentID)

	part, err = CreatePartWithID(bytesFactory(t, []byte("x")), "text/plain", "<already>")
	require.NoError(t, err)
	assert.Equal(t, "<already>", part.ContentID)
}

func TestNewMessage(t *testing.T) {
	msg, _ := newTestMessage(t)

	assert.Equal(t, ContentTypeMultipartRelated, msg.ContentType)
	assert.Equal(t, "<root@payload>", msg.StartID)
	assert.Equal(t, ContentTypeApplicationXML, msg.Type)
	assert.True(t, strings.HasPrefix(msg.Boundary, "----=_Part_"))
	require.Len(t, msg.Parts, 2)
	assert.Equal(t, "<root@payload>", msg.Parts[0].ContentID)

	root := Part{Source: bytesFactory(t, []byte("<a/>")), ContentType: "text/xml; charset=utf-8"}
	generated := NewMessage(root)
	assert.NotEmpty(t, generated.StartID)
	assert.Equal(t, ContentTypeTextXML, generated.Type)
}

func TestMessage_MediaType(t *testing.T) {
	msg, _ := newTestMessage(t)

	mediaType, params, err := mime.ParseMediaType(msg.MediaType())
	require.NoError(t, err)
	assert.Equal(t, ContentTypeMultipartRelated, mediaType)
	assert.Equal(t, msg.Boundary, params["boundary"])
	assert.Equal(t, "root@payload", params["start"])
	assert.Equal(t, ContentTypeApplicationXML, params["type"])
}

func TestMessage_FactoryReadableByMultipartReader(t *testing.T) {
	msg, binary := newTestMessage(t)
	f, err := msg.Factory()
	require.NoError(t, err)

	reader := multipart.NewReader(bytes.NewReader(readFactory(t, f)), msg.Boundary)

	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "<root@payload>", part.Header.Get("Content-ID"))
	assert.Equal(t, "application/xml; charset=UTF-8", part.Header.Get("Content-Type"))
	assert.Equal(t, "8bit", part.Header.Get("Content-Transfer-Encoding"))
	data, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, rootXML, string(data))

	part, err = reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "<payload-1>", part.Header.Get("Content-ID"))
	assert.Equal(t, "base64", part.Header.Get("Content-Transfer-Encoding"))
	assert.Equal(t, "scan", part.Header.Get("Content-Description"))
	data, err = io.ReadAll(part)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\r\n")
	require.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 76)
	}
	assert.Equal(t, base64.StdEncoding.EncodeToString(binary), strings.Join(lines, ""))

	_, err = reader.NextPart()
	assert.Equal(t, io.EOF, err)
}

func TestMessage_FactoryOpensIndependentStreams(t *testing.T) {
	msg, _ := newTestMessage(t)
	f, err := msg.Factory()
	require.NoError(t, err)

	first := readFactory(t, f)
	second := readFactory(t, f)
	assert.Equal(t, first, second)

	data, contentType, err := msg.Serialize()
	require.NoError(t, err)
	assert.Equal(t, first, data)
	assert.Equal(t, msg.MediaType(), contentType)
}

func TestMessage_FactoryInvalid(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
	}{
		{"no parts", &Message{Boundary: "b"}},
		{"no boundary", &Message{Parts: []Part{{Source: bytesFactory(t, []byte("x"))}}}},
		{"part without source", &Message{Boundary: "b", Parts: []Part{{ContentID: "<x>"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.msg.Factory()
			assert.ErrorIs(t, err, stream.ErrInvalidArgument)
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	msg, binary := newTestMessage(t)
	data, contentType, err := msg.Serialize()
	require.NoError(t, err)

	parsed, err := Parse(bytes.NewReader(data), contentType)
	require.NoError(t, err)

	assert.Equal(t, msg.Boundary, parsed.Boundary)
	assert.Equal(t, "root@payload", parsed.StartID)
	assert.Equal(t, ContentTypeApplicationXML, parsed.Type)
	require.Len(t, parsed.Parts, 2)

	root := parsed.Root()
	require.NotNil(t, root)
	assert.Equal(t, "<root@payload>", root.ContentID)
	assert.Equal(t, ContentTypeApplicationXML, root.ContentType)
	assert.Equal(t, "UTF-8", root.CharacterSet)
	assert.Equal(t, rootXML, string(readFactory(t, root.Source)))

	attachment := parsed.GetPartByContentID("cid:payload-1")
	require.NotNil(t, attachment)
	assert.Equal(t, "image/png", attachment.ContentType)
	assert.Equal(t, TransferBase64, attachment.ContentTransfer)
	assert.Equal(t, "scan", attachment.Headers.Get("Content-Description"))
	assert.Empty(t, attachment.Headers.Get("Content-Type"))
	assert.Equal(t, binary, readFactory(t, attachment.Source))

	// Serialising the parsed message encodes the attachment again
	again, _, err := parsed.Serialize()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     error
	}{
		{"malformed content type", "multipart/related; boundary=", "", nil},
		{"not multipart", "text/plain", "", nil},
		{"missing boundary", "multipart/related", "", nil},
		{"no parts", `multipart/related; boundary="b"`, "--b--\r\n", nil},
		{"truncated", `multipart/related; boundary="b"`, "--b\r\nContent-Type: text/plain\r\n\r\nabc", nil},
		{
			"malformed base64",
			`multipart/related; boundary="b"`,
			"--b\r\nContent-Transfer-Encoding: base64\r\n\r\nnot*base64\r\n--b--\r\n",
			stream.ErrMalformedContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.body), tt.contentType)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMessage_Slot(t *testing.T) {
	attachment, err := CreatePartWithID(bytesFactory(t, []byte("attachment")), "text/plain", "att")
	require.NoError(t, err)
	root, err := CreatePartWithID(bytesFactory(t, []byte(rootXML)), ContentTypeApplicationXML, "root")
	require.NoError(t, err)

	// The start part is not the first part on the wire
	msg := &Message{Boundary: "b", StartID: "root", Parts: []Part{attachment, root}}

	slot, err := msg.Slot()
	require.NoError(t, err)
	assert.Equal(t, 2, slot.Parts())

	h, err := content.NewHandler(slot)
	require.NoError(t, err)
	defer h.Close()

	name, err := h.RootElementName()
	require.NoError(t, err)
	assert.Equal(t, "Invoice", name)

	second, err := slot.Part(1)
	require.NoError(t, err)
	r, err := second.Retrieve()
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "attachment", string(data))

	_, err = (&Message{}).Slot()
	assert.ErrorIs(t, err, stream.ErrInvalidArgument)
}

func TestGetPartByContentID(t *testing.T) {
	msg := &Message{Parts: []Part{{ContentID: "<part1@example.com>"}, {ContentID: "<part2@example.com>"}}}

	tests := []struct {
		name      string
		contentID string
		want      string
	}{
		{"with brackets", "<part1@example.com>", "<part1@example.com>"},
		{"without brackets", "part2@example.com", "<part2@example.com>"},
		{"with cid prefix", "cid:part1@example.com", "<part1@example.com>"},
		{"not found", "missing@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part := msg.GetPartByContentID(tt.contentID)
			if tt.want == "" {
				assert.Nil(t, part)
				return
			}
			require.NotNil(t, part)
			assert.Equal(t, tt.want, part.ContentID)
		})
	}
}

func TestContentIDBrackets(t *testing.T) {
	tests := []struct {
		input   string
		added   string
		removed string
	}{
		{"test-id", "<test-id>", "test-id"},
		{"<test-id>", "<test-id>", "test-id"},
		{"<test-id", "<test-id>", "test-id"},
		{"test-id>", "<test-id>", "test-id"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.added, AddContentIDBrackets(tt.input))
			assert.Equal(t, tt.removed, GetContentIDWithoutBrackets(tt.input))
		})
	}
}

func TestGenerateBoundary(t *testing.T) {
	b1 := generateBoundary()
	b2 := generateBoundary()

	assert.NotEqual(t, b1, b2)
	assert.Less(t, len(b1), 70)
	assert.True(t, strings.HasPrefix(b1, "----=_Part_"))
}
