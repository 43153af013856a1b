package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-payload/internal/config"
	"github.com/sirosfoundation/go-payload/internal/storage"
	"github.com/sirosfoundation/go-payload/internal/storage/mongodb"
	"github.com/sirosfoundation/go-payload/internal/storage/redisstore"
	"github.com/sirosfoundation/go-payload/pkg/content"
	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// openStore creates the payload store selected by cfg.Backend
func openStore(ctx context.Context, cfg *config.StorageConfig) (storage.PayloadStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	case config.BackendMongoDB:
		return mongodb.NewStore(ctx, &mongodb.Config{
			URI:            cfg.MongoDB.URI,
			Database:       cfg.MongoDB.Database,
			GridFSBucket:   cfg.MongoDB.GridFS.BucketName,
			ChunkSizeBytes: cfg.MongoDB.GridFS.ChunkSizeBytes,
		})
	case config.BackendRedis:
		return redisstore.NewStore(ctx, &redisstore.Config{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func newStoreCmd(a *app) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Move payloads in and out of the configured store",
	}
	storeCmd.AddCommand(newStorePutCmd(a))
	storeCmd.AddCommand(newStoreGetCmd(a))
	storeCmd.AddCommand(newStoreDeleteCmd(a))
	return storeCmd
}

func newStorePutCmd(a *app) *cobra.Command {
	var fromBase64 bool

	cmd := &cobra.Command{
		Use:   "put <file>...",
		Short: "Store files and print their payload IDs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			slot, err := storage.NewSlot(ctx, store, len(args), storage.WithLogger(a.logger))
			if err != nil {
				return err
			}

			for i, path := range args {
				src, err := stream.NewFileFactory(path)
				if err != nil {
					return err
				}
				var f stream.Factory = src
				if fromBase64 {
					if f, err = stream.NewBase64Decoder(src); err != nil {
						return err
					}
				}

				part, err := slot.Part(i)
				if err != nil {
					return err
				}
				if err := part.LoadFrom(content.FromFactory(a.instrument("put", f))); err != nil {
					return fmt.Errorf("failed to store %s: %w", path, err)
				}
			}

			for i, id := range slot.IDs() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, args[i])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromBase64, "base64", false, "decode the files from Base64 before storing")
	return cmd
}

func newStoreGetCmd(a *app) *cobra.Command {
	var (
		asBase64 bool
		rootName bool
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Write a stored payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			slot, err := storage.OpenSlot(ctx, store, []string{args[0]}, storage.WithLogger(a.logger))
			if err != nil {
				return err
			}
			h, err := content.NewHandler(slot, content.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer h.Close()

			switch {
			case rootName:
				name, err := h.RootElementName()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
				return err
			case asBase64:
				text, err := h.RetrieveAsBase64()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			default:
				part, err := slot.Part(0)
				if err != nil {
					return err
				}
				f, err := stream.NewPartFactory(part)
				if err != nil {
					return err
				}
				return a.output(cmd, outPath, a.instrument("get", f))
			}
		},
	}
	cmd.Flags().BoolVar(&asBase64, "base64", false, "print the payload as Base64")
	cmd.Flags().BoolVar(&rootName, "root", false, "print the root element name of an XML payload")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newStoreDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete stored payloads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := store.DeletePayload(ctx, id); err != nil {
					return err
				}
				a.logger.Info("deleted payload", "id", id)
			}
			return nil
		},
	}
}
