// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package compression provides streaming payload codecs.

Two codecs are available, both implementing [Codec]:

  - [Compressor]: GZIP (RFC 1952) with a configurable level
  - [Snappy]: the snappy framing format

# Streaming

Codecs expose writer and reader constructors so that payloads can be
compressed while they are being streamed:

	w, err := compression.NewCompressor().NewWriter(dst)
	r, err := compression.Snappy{}.NewReader(src)

The stream package builds its GZIP and snappy transforms on top of these.

# Whole Payloads

For payloads already held in memory:

	compressor := compression.NewCompressor()
	compressed, err := compressor.Compress(payload)
	decompressed, err := compressor.Decompress(compressed)

# Content Type Detection

	if compression.ShouldCompress("application/xml") {
	    // Compress XML content
	}

Not compressed (already compressed):
  - application/gzip, application/x-gzip
  - application/zip
  - application/x-snappy-framed
  - image/jpeg, image/png
  - video/mp4, audio/mp3

# References

  - GZIP RFC 1952: https://datatracker.ietf.org/doc/html/rfc1952
  - Snappy framing format: https://github.com/google/snappy/blob/main/framing_format.txt
*/
package compression
