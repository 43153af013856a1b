package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-payload/internal/manifest"
	"github.com/sirosfoundation/go-payload/internal/storage"
	"github.com/sirosfoundation/go-payload/pkg/content"
	"github.com/sirosfoundation/go-payload/pkg/mime"
	"github.com/sirosfoundation/go-payload/pkg/stream"
	"github.com/sirosfoundation/go-payload/pkg/transport"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		contentType  string
		fromManifest bool
		caPath       string
		timeout      time.Duration
		policy       = transport.DefaultRetryPolicy()
	)

	cmd := &cobra.Command{
		Use:   "send <url> [file|-]",
		Short: "POST a file or manifest stream to a payload receiver",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := argOrStdin(args[1:])

			var body stream.Factory
			if fromManifest {
				m, err := manifest.Load(path)
				if err != nil {
					return err
				}
				if body, err = m.Build(manifest.WithWrapper(a.instrument)); err != nil {
					return err
				}
			} else {
				src, err := input(cmd, path)
				if err != nil {
					return err
				}
				body = a.instrument("send", src)
			}

			config := transport.DefaultHTTPSConfig()
			config.Timeout = timeout
			if caPath != "" {
				pem, err := os.ReadFile(caPath)
				if err != nil {
					return fmt.Errorf("failed to read CA file: %w", err)
				}
				pool := x509.NewCertPool()
				if !pool.AppendCertsFromPEM(pem) {
					return fmt.Errorf("no certificates found in %s", caPath)
				}
				config.RootCAs = pool
			}

			a.logger.Debug("sending payload", "url", args[0], "content_type", contentType)
			response, err := transport.NewHTTPSClient(config).SendWithRetry(cmd.Context(), args[0], body, contentType, policy)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(response)
			return err
		},
	}
	cmd.Flags().StringVarP(&contentType, "content-type", "t", mime.ContentTypeOctetStream, "request content type")
	cmd.Flags().BoolVarP(&fromManifest, "manifest", "m", false, "treat the file as a manifest and send the stream it describes")
	cmd.Flags().StringVar(&caPath, "ca", "", "PEM file with additional trusted CA certificates")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	cmd.Flags().IntVar(&policy.MaxAttempts, "attempts", policy.MaxAttempts, "attempts for server and connection errors")
	cmd.Flags().DurationVar(&policy.Interval, "retry-interval", policy.Interval, "wait before the first retry, doubled for each further retry")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr         string
		certPath     string
		keyPath      string
		maxBodyBytes int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive payloads over HTTPS and put them in the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := tls.LoadX509KeyPair(certPath, keyPath)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			config := transport.DefaultHTTPSConfig()
			config.Certificates = []tls.Certificate{cert}
			config.MaxBodyBytes = maxBodyBytes
			server := transport.NewHTTPSServer(addr, config, a.receiver(store), a.logger)

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("receiving payloads", "addr", addr, "path", transport.DefaultPath)
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8443", "listen address")
	cmd.Flags().StringVar(&certPath, "cert", "", "TLS certificate file (PEM)")
	cmd.Flags().StringVar(&keyPath, "key", "", "TLS private key file (PEM)")
	cmd.Flags().Int64Var(&maxBodyBytes, "max-body-bytes", 0, "reject larger request bodies (0 = unlimited)")
	cmd.MarkFlagRequired("cert")
	cmd.MarkFlagRequired("key")
	return cmd
}

// receiver stores received payloads and answers with one "id\tname" line
// per stored payload. multipart/related packages are split into their parts.
func (a *app) receiver(store storage.PayloadStore) transport.PayloadHandler {
	return transport.PayloadHandlerFunc(func(ctx context.Context, contentType string, body io.Reader) ([]byte, error) {
		if !strings.HasPrefix(strings.ToLower(contentType), "multipart/") {
			id, err := store.StorePayload(ctx, "upload", body)
			if err != nil {
				return nil, err
			}
			a.logger.Info("stored payload", "id", id, "content_type", contentType)
			return []byte(id + "\tupload\n"), nil
		}

		msg, err := mime.Parse(body, contentType)
		if err != nil {
			return nil, err
		}
		slot, err := storage.NewSlot(ctx, store, len(msg.Parts), storage.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}

		var out strings.Builder
		for i, p := range msg.Parts {
			part, err := slot.Part(i)
			if err != nil {
				return nil, err
			}
			if err := part.LoadFrom(content.FromFactory(a.instrument("receive", p.Source))); err != nil {
				a.discard(ctx, store, slot.IDs())
				return nil, fmt.Errorf("failed to store part %s: %w", p.ContentID, err)
			}
			name := mime.GetContentIDWithoutBrackets(p.ContentID)
			id := slot.IDs()[i]
			a.logger.Info("stored payload", "id", id, "content_id", name)
			fmt.Fprintf(&out, "%s\t%s\n", id, name)
		}
		return []byte(out.String()), nil
	})
}

// discard deletes the payloads of a partially stored package
func (a *app) discard(ctx context.Context, store storage.PayloadStore, ids []string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := store.DeletePayload(ctx, id); err != nil {
			a.logger.Warn("failed to delete partial payload", "id", id, "error", err)
		}
	}
}
