package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// echoHandler returns the content type and body it received
var echoHandler = PayloadHandlerFunc(func(ctx context.Context, contentType string, body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return []byte(contentType + "|" + string(data)), nil
})

// countingFactory counts how often the payload is opened
func countingFactory(data string, opens *atomic.Int32) stream.Factory {
	return stream.FactoryFunc(func() (io.ReadCloser, error) {
		opens.Add(1)
		return io.NopCloser(strings.NewReader(data)), nil
	})
}

func TestDefaultHTTPSConfig(t *testing.T) {
	config := DefaultHTTPSConfig()
	require.NotNil(t, config)

	assert.Equal(t, uint16(TLS12), config.MinTLSVersion)
	assert.Equal(t, uint16(TLS13), config.MaxTLSVersion)
	assert.NotEmpty(t, config.CipherSuites)
	assert.Equal(t, tls.NoClientCert, config.ClientAuth)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 90*time.Second, config.IdleConnTimeout)
	assert.Zero(t, config.MaxBodyBytes)

	tlsConfig := config.tlsConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)
	assert.Equal(t, config.CipherSuites, tlsConfig.CipherSuites)

	for _, suite := range RecommendedTLS12CipherSuites {
		assert.NotEmpty(t, tls.CipherSuiteName(suite))
	}
}

func TestHTTPSClient_Send(t *testing.T) {
	server := NewHTTPSServer(":0", nil, echoHandler, nil)
	ts := httptest.NewTLSServer(server.Handler())
	defer ts.Close()

	pool := x509.NewCertPool()
	pool.AddCert(ts.Certificate())
	client := NewHTTPSClient(&HTTPSConfig{
		MinTLSVersion: TLS12,
		MaxTLSVersion: TLS13,
		RootCAs:       pool,
		Timeout:       5 * time.Second,
	})

	header, err := stream.NewBytesFactory([]byte("<a>"))
	require.NoError(t, err)
	data, err := stream.NewBytesFactory([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	encoded, err := stream.NewBase64Encoder(data)
	require.NoError(t, err)
	trailer, err := stream.NewBytesFactory([]byte("</a>"))
	require.NoError(t, err)
	body, err := stream.NewMultiSourceFactory([]stream.Factory{header, encoded, trailer})
	require.NoError(t, err)

	response, err := client.Send(context.Background(), ts.URL+DefaultPath, body, "application/xml")
	require.NoError(t, err)
	assert.Equal(t, "application/xml|<a>AQIDBA==</a>", string(response))
}

func TestHTTPSClient_SendReopensOnRedirect(t *testing.T) {
	server := NewHTTPSServer(":0", nil, echoHandler, nil)
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, server.Handler())
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Redirect(w, r, DefaultPath, http.StatusTemporaryRedirect)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	var opens atomic.Int32
	client := NewHTTPSClient(nil)
	response, err := client.Send(context.Background(), ts.URL+"/old", countingFactory("payload", &opens), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "text/plain|payload", string(response))
	assert.GreaterOrEqual(t, opens.Load(), int32(2))
}

func TestHTTPSClient_SendErrors(t *testing.T) {
	failing := PayloadHandlerFunc(func(ctx context.Context, contentType string, body io.Reader) ([]byte, error) {
		return nil, fmt.Errorf("rejected")
	})
	ts := httptest.NewServer(NewHTTPSServer(":0", nil, failing, nil).Handler())
	defer ts.Close()

	client := NewHTTPSClient(nil)
	body, err := stream.NewBytesFactory([]byte("x"))
	require.NoError(t, err)

	t.Run("server error", func(t *testing.T) {
		_, err := client.Send(context.Background(), ts.URL+DefaultPath, body, "text/plain")
		assert.ErrorContains(t, err, "unexpected status code 500")
	})

	t.Run("nil body", func(t *testing.T) {
		_, err := client.Send(context.Background(), ts.URL+DefaultPath, nil, "text/plain")
		assert.ErrorIs(t, err, stream.ErrInvalidArgument)
	})

	t.Run("open fails", func(t *testing.T) {
		broken := stream.FactoryFunc(func() (io.ReadCloser, error) {
			return nil, io.ErrUnexpectedEOF
		})
		_, err := client.Send(context.Background(), ts.URL+DefaultPath, broken, "text/plain")
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.Send(ctx, ts.URL+DefaultPath, body, "text/plain")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestHTTPSServer_Handler(t *testing.T) {
	config := DefaultHTTPSConfig()
	config.MaxBodyBytes = 8
	handler := NewHTTPSServer(":0", config, echoHandler, nil).Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"accepted", http.MethodPost, DefaultPath, "short", http.StatusOK, "text/plain|short"},
		{"wrong method", http.MethodGet, DefaultPath, "", http.StatusMethodNotAllowed, ""},
		{"too large", http.MethodPost, DefaultPath, "much too long", http.StatusRequestEntityTooLarge, ""},
		{"unknown path", http.MethodPost, "/other", "x", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "text/plain")
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestHTTPSServer_StartWithoutCertificates(t *testing.T) {
	server := NewHTTPSServer("127.0.0.1:0", nil, echoHandler, nil)
	assert.ErrorContains(t, server.Start(), "no TLS certificates")
	assert.NoError(t, server.Shutdown(context.Background()))
}
