// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package mime streams MIME multipart/related packages.

A package is a root part followed by attachments. Every part carries a
stream.Factory instead of a byte slice, so a package can be serialised
without holding its payloads in memory.

# MIME Structure

	Content-Type: multipart/related;
	    type="application/xml";
	    start="<root@payload>";
	    boundary="----=_Part_..."

	------=_Part_...
	Content-Id: <root@payload>
	Content-Transfer-Encoding: 8bit
	Content-Type: application/xml; charset=UTF-8

	[root document]
	------=_Part_...
	Content-Id: <payload-1>
	Content-Transfer-Encoding: base64
	Content-Type: application/octet-stream

	[Base64 encoded payload, encoded while streaming]
	------=_Part_...--

# Creating Packages

	root, _ := mime.CreatePart(rootFactory, "application/xml")
	attachment, _ := mime.CreatePartWithID(fileFactory, "image/png", "payload-1")
	attachment.ContentTransfer = mime.TransferBase64

	msg := mime.NewMessage(root, attachment)
	body, err := msg.Factory()
	r, err := body.Open()
	req.Header.Set("Content-Type", msg.MediaType())

Parts with Content-Transfer-Encoding base64 are encoded by a Base64
transform when the package is read. Encoded lines are not wrapped.

# Parsing Packages

	msg, err := mime.Parse(body, contentType)
	slot, err := msg.Slot()

[Message.Slot] exposes the parsed parts as a content slot so that a
content.Handler can work on the root part.

# References

  - MIME Multipart: https://datatracker.ietf.org/doc/html/rfc2046
  - multipart/related: https://datatracker.ietf.org/doc/html/rfc2387
*/
package mime
