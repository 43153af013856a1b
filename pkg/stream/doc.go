// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package stream composes lazily evaluated, read-only byte streams.

The central abstraction is the [Factory]: a value that produces a fresh
[io.ReadCloser] over the same logical source every time Open is called.
Factories are cheap to build and are combined into trees; no bytes are read
until the root factory is opened and its stream is consumed.

# Leaf Factories

	file, _ := stream.NewFileFactory("/var/spool/payload.bin")
	header, _ := stream.NewBytesFactory([]byte("<Root><Data>"))
	region, _ := stream.NewRegionFactory(buf, 128, 512)
	part, _ := stream.NewPartFactory(retriever)

[NewRegionFactory] validates its bounds once and never copies the buffer.
The caller must not modify the buffer while streams over it are in use.

# Transforms

A [TransformFactory] opens its child and wraps the child stream in an
encoder or decoder:

	encoded, _ := stream.NewBase64Encoder(file)
	raw, _ := stream.NewBase64Decoder(encoded)

Base64 follows RFC 4648 with the standard alphabet and padding. The gzip and
snappy transforms are provided by the compression package.

The returned stream reports its position through [PositionReader]. Closing
it releases the child stream only; the transform is never flushed on the
read side.

# Concatenation

[MultiSourceFactory] presents an ordered list of factories as one stream:

	body, _ := stream.NewMultiSourceFactory([]stream.Factory{header, encoded, trailer})
	r, _ := body.Open()
	defer r.Close()
	io.Copy(w, r)

Sources are opened one at a time, strictly in order, and each one is closed
before the next is opened. A source is considered exhausted only when it
returns io.EOF.

# Errors

Argument problems are reported with [ErrInvalidArgument], operations a
read-only stream cannot perform with [ErrUnsupported] and undecodable input
with [ErrMalformedContent]. I/O errors from sources are returned unchanged.
*/
package stream
