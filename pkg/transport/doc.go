// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport streams payloads over HTTPS.

The client posts one stream of a stream.Factory as the request body. The
body is never buffered; when the HTTP client follows a redirect it reopens
the factory to send the payload again.

# TLS Configuration

TLS 1.3 is preferred with fallback to TLS 1.2:

	config := transport.DefaultHTTPSConfig()
	// MinTLSVersion: TLS 1.2
	// MaxTLSVersion: TLS 1.3

For TLS 1.2, the following cipher suites are recommended:
  - TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
  - TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
  - TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256

# Client Usage

	client := transport.NewHTTPSClient(&transport.HTTPSConfig{
	    MinTLSVersion: transport.TLS12,
	    RootCAs:       certPool,
	})

	msg, _ := mime.NewMessage(root, attachment)
	body, _ := msg.Factory()
	response, err := client.Send(ctx, "https://receiver.example.com/payload", body, msg.MediaType())

# Server Usage

Payloads posted to DefaultPath are passed to a PayloadHandler as a stream:

	handler := transport.PayloadHandlerFunc(func(ctx context.Context, contentType string, body io.Reader) ([]byte, error) {
	    id, err := store.StorePayload(ctx, "upload", body)
	    return []byte(id), err
	})
	server := transport.NewHTTPSServer(":8443", &transport.HTTPSConfig{
	    MinTLSVersion: transport.TLS12,
	    Certificates:  []tls.Certificate{cert},
	}, handler, logger)
	go server.Start()

# References

  - TLS 1.3 RFC 8446: https://datatracker.ietf.org/doc/html/rfc8446
  - TLS 1.2 RFC 5246: https://datatracker.ietf.org/doc/html/rfc5246
*/
package transport
