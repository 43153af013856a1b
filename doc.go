// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package gopayload streams message payloads without loading them into memory.

# Overview

go-payload describes a payload as a tree of stream factories. A factory can
be opened any number of times and every open returns a fresh, independent
io.ReadCloser. Leaves read files, byte regions or stored parts; transforms
Base64-encode, decode, gzip or snappy-compress another factory on the fly;
a multi-source factory concatenates several factories into one stream.

On top of that, a content handler loads and retrieves the first part of a
content slot as text, Base64 or a stream, and finds the root element name
of XML content with a forward-only reader.

# Package Structure

	github.com/sirosfoundation/go-payload/pkg/stream      - Factories, transforms, multi-source streams
	github.com/sirosfoundation/go-payload/pkg/content     - Content handler, slots, sources, seekable adapter
	github.com/sirosfoundation/go-payload/pkg/compression - GZIP and snappy codecs
	github.com/sirosfoundation/go-payload/pkg/mime        - Streaming multipart/related packages

Internal packages provide payload stores (memory, MongoDB GridFS, Redis),
Prometheus instrumentation, YAML configuration and manifests for the
payloadcat command.

# Quick Start

Wrap a binary payload in an XML envelope:

	header, _ := stream.NewBytesFactory([]byte("<Root><binaryData>"))
	data, _ := stream.NewFileFactory("scan.pdf")
	encoded, _ := stream.NewBase64Encoder(data)
	trailer, _ := stream.NewBytesFactory([]byte("</binaryData></Root>"))

	document, err := stream.NewMultiSourceFactory([]stream.Factory{header, encoded, trailer})
	if err != nil {
	    log.Fatal(err)
	}

	r, err := document.Open()
	if err != nil {
	    log.Fatal(err)
	}
	defer r.Close()
	io.Copy(w, r)

Inspect XML content:

	h, _ := content.NewHandler(content.NewMemorySlot(1))
	defer h.Close()
	h.LoadFromString(xml)
	name, err := h.RootElementName()

# Errors

Errors are matched with errors.Is against the sentinels in pkg/stream
(ErrInvalidArgument, ErrUnsupported, ErrMalformedContent, ErrClosed) and
pkg/content (ErrReleased, ErrNoParts, ErrEmptyPart).
*/
package gopayload
