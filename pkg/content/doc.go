// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package content moves a single logical payload in and out of a content slot.

A [Slot] is an external container with one or more addressable parts. A
[Handler] binds to a slot and always works on part 0, converting between
strings, Base64 text and raw streams.

# Loading and Retrieving

	slot := content.NewMemorySlot(1)
	h, err := content.NewHandler(slot)
	if err != nil {
	    return err
	}
	defer h.Close()

	if err := h.LoadFromBase64(encoded); err != nil {
	    return err
	}
	name, err := h.RootElementName()
	text, err := h.RetrieveAsString()

Streams returned by [Handler.RetrieveAsStream] belong to the caller, who
must close them. After [Handler.Close] every method fails with [ErrReleased].

# Sources

Parts are loaded from a [Source], a tagged union over the accepted source
kinds:

  - [FromBytes]: a byte slice, referenced without copying
  - [FromStream]: a seekable stream; use [NewSeekable] for forward-only readers
  - [FromDocument]: an etree XML document, serialised on demand
  - [FromFactory]: any stream.Factory

# One-shot Helpers

The package level functions such as [LoadContentFromString] and
[RetrieveContentAsBase64] bind a handler for a single call.
*/
package content
