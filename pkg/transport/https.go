// Package transport streams payloads over HTTPS with TLS 1.2/1.3
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

// DefaultPath is where the server accepts payloads
const DefaultPath = "/payload"

// Recommended TLS 1.2 cipher suites
var RecommendedTLS12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// HTTPSConfig contains HTTPS client/server configuration
type HTTPSConfig struct {
	MinTLSVersion   uint16
	MaxTLSVersion   uint16
	CipherSuites    []uint16
	ClientAuth      tls.ClientAuthType
	Certificates    []tls.Certificate
	RootCAs         *x509.CertPool
	ClientCAs       *x509.CertPool
	Timeout         time.Duration
	IdleConnTimeout time.Duration
	// MaxBodyBytes limits request bodies accepted by the server; zero means no limit
	MaxBodyBytes int64
}

// DefaultHTTPSConfig returns a default HTTPS configuration
func DefaultHTTPSConfig() *HTTPSConfig {
	return &HTTPSConfig{
		MinTLSVersion:   TLS12,
		MaxTLSVersion:   TLS13,
		CipherSuites:    RecommendedTLS12CipherSuites,
		ClientAuth:      tls.NoClientCert,
		Timeout:         30 * time.Second,
		IdleConnTimeout: 90 * time.Second,
	}
}

func (c *HTTPSConfig) tlsConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   c.MinTLSVersion,
		MaxVersion:   c.MaxTLSVersion,
		CipherSuites: c.CipherSuites,
		Certificates: c.Certificates,
		RootCAs:      c.RootCAs,
		ClientCAs:    c.ClientCAs,
		ClientAuth:   c.ClientAuth,
	}
}

// HTTPSClient sends payload streams over HTTPS
type HTTPSClient struct {
	client *http.Client
	config *HTTPSConfig
}

// NewHTTPSClient creates a new HTTPS client
func NewHTTPSClient(config *HTTPSConfig) *HTTPSClient {
	if config == nil {
		config = DefaultHTTPSConfig()
	}

	transport := &http.Transport{
		TLSClientConfig:     config.tlsConfig(),
		IdleConnTimeout:     config.IdleConnTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	return &HTTPSClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		config: config,
	}
}

// Send posts one stream of body to endpoint and returns the response body.
// The request body is streamed; redirects reopen body through the factory.
func (c *HTTPSClient) Send(ctx context.Context, endpoint string, body stream.Factory, contentType string) ([]byte, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: body is nil", stream.ErrInvalidArgument)
	}

	r, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.GetBody = body.Open

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "go-payload/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return responseBody, nil
}

// StatusError is returned by Send when the receiver answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// PayloadHandler processes incoming payloads. The body must be consumed
// before HandlePayload returns.
type PayloadHandler interface {
	HandlePayload(ctx context.Context, contentType string, body io.Reader) ([]byte, error)
}

// PayloadHandlerFunc adapts a function to PayloadHandler
type PayloadHandlerFunc func(ctx context.Context, contentType string, body io.Reader) ([]byte, error)

func (f PayloadHandlerFunc) HandlePayload(ctx context.Context, contentType string, body io.Reader) ([]byte, error) {
	return f(ctx, contentType, body)
}

// HTTPSServer receives payloads over HTTPS
type HTTPSServer struct {
	server  *http.Server
	config  *HTTPSConfig
	handler PayloadHandler
	logger  *slog.Logger
}

// NewHTTPSServer creates a new HTTPS server
func NewHTTPSServer(addr string, config *HTTPSConfig, handler PayloadHandler, logger *slog.Logger) *HTTPSServer {
	if config == nil {
		config = DefaultHTTPSConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPSServer{
		config:  config,
		handler: handler,
		logger:  logger,
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		TLSConfig:    config.tlsConfig(),
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
		IdleTimeout:  config.IdleConnTimeout,
	}

	return s
}

// Handler returns the HTTP handler serving DefaultPath
func (s *HTTPSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(DefaultPath, s.handlePayload)
	return mux
}

func (s *HTTPSServer) handlePayload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	body := r.Body
	if s.config.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	response, err := s.handler.HandlePayload(r.Context(), r.Header.Get("Content-Type"), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.Warn("failed to process payload", "error", err, "remote", r.RemoteAddr)
		http.Error(w, fmt.Sprintf("Failed to process payload: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(response)
}

// Start starts the HTTPS server
func (s *HTTPSServer) Start() error {
	if len(s.config.Certificates) == 0 {
		return fmt.Errorf("no TLS certificates configured")
	}

	return s.server.ListenAndServeTLS("", "")
}

// Shutdown gracefully shuts down the server
func (s *HTTPSServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
