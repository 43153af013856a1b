package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-payload/internal/config"
	"github.com/sirosfoundation/go-payload/internal/metrics"
	"github.com/sirosfoundation/go-payload/internal/storage"
	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// app holds state shared by all subcommands
type app struct {
	configPath  string
	dumpMetrics bool

	cfg      *config.Config
	logger   *slog.Logger
	gatherer *prometheus.Registry
	metrics  *metrics.Registry
	store    storage.PayloadStore
	owned    bool
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "payloadcat",
		Short: "Assemble and inspect payload streams",
		Long: `payloadcat builds byte streams out of files, text, XML documents and
transforms (Base64, gzip, snappy), concatenates them without buffering whole
payloads, moves them in and out of a payload store and sends or receives
them over HTTPS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.dumpMetrics {
				return a.writeMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&a.dumpMetrics, "metrics", false, "print stream metrics to stderr when done")

	rootCmd.AddCommand(newAssembleCmd(a))
	rootCmd.AddCommand(newEncodeCmd(a))
	rootCmd.AddCommand(newDecodeCmd(a))
	rootCmd.AddCommand(newRootNameCmd(a))
	rootCmd.AddCommand(newMIMECmd(a))
	rootCmd.AddCommand(newStoreCmd(a))
	rootCmd.AddCommand(newSendCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd
}

func (a *app) setup(logOut io.Writer) error {
	if a.cfg == nil {
		cfg := config.Default()
		if a.configPath != "" {
			var err error
			if cfg, err = config.Load(a.configPath); err != nil {
				return err
			}
		}
		a.cfg = cfg
	}

	if a.logger == nil {
		a.logger = a.cfg.Logging.NewLogger(logOut)
	}

	if (a.cfg.Metrics.Enabled || a.dumpMetrics) && a.metrics == nil {
		a.gatherer = prometheus.NewRegistry()
		a.metrics = metrics.NewRegistry(a.gatherer, a.cfg.Metrics.Namespace)
	}
	return nil
}

// instrument wraps f with metrics when they are enabled
func (a *app) instrument(name string, f stream.Factory) stream.Factory {
	if a.metrics == nil {
		return f
	}
	return a.metrics.Instrument(name, f)
}

func (a *app) writeMetrics(w io.Writer) error {
	if a.gatherer == nil {
		return nil
	}
	families, err := a.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// input returns a factory for path; "-" or "" reads standard input once
func input(cmd *cobra.Command, path string) (stream.Factory, error) {
	if path != "" && path != "-" {
		return stream.NewFileFactory(path)
	}

	stdin := cmd.InOrStdin()
	used := false
	return stream.FactoryFunc(func() (io.ReadCloser, error) {
		if used {
			return nil, fmt.Errorf("standard input can only be read once: %w", stream.ErrUnsupported)
		}
		used = true
		return io.NopCloser(stdin), nil
	}), nil
}

// output copies one stream of f to the output file or stdout
func (a *app) output(cmd *cobra.Command, path string, f stream.Factory) error {
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer r.Close()

	w := cmd.OutOrStdout()
	if path != "" && path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		w = file
	}

	n, err := io.Copy(w, r)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	a.logger.Debug("wrote stream", "bytes", n, "output", path)
	return nil
}

func (a *app) openStore(ctx context.Context) (storage.PayloadStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := openStore(ctx, &a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.owned = true
	return store, nil
}

// close releases the store opened by openStore
func (a *app) close() {
	if a.store == nil || !a.owned {
		return
	}
	if err := a.store.Close(context.Background()); err != nil && a.logger != nil {
		a.logger.Warn("failed to close store", "error", err)
	}
	a.store = nil
}
