package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-payload/internal/manifest"
	"github.com/sirosfoundation/go-payload/pkg/content"
	"github.com/sirosfoundation/go-payload/pkg/mime"
	"github.com/sirosfoundation/go-payload/pkg/stream"
)

var encoders = map[string]stream.Transform{
	"base64": stream.Base64Encode,
	"gzip":   stream.GzipCompress,
	"snappy": stream.SnappyEncode,
}

var decoders = map[string]stream.Transform{
	"base64": stream.Base64Decode,
	"gzip":   stream.GzipDecompress,
	"snappy": stream.SnappyDecode,
}

func newAssembleCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "assemble <manifest.yaml>",
		Short: "Write the stream described by a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}
			f, err := m.Build(manifest.WithWrapper(a.instrument))
			if err != nil {
				return err
			}
			return a.output(cmd, outPath, f)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newEncodeCmd(a *app) *cobra.Command {
	return newTransformCmd(a, "encode", "Encode or compress a file", encoders)
}

func newDecodeCmd(a *app) *cobra.Command {
	return newTransformCmd(a, "decode", "Decode or decompress a file", decoders)
}

func newTransformCmd(a *app, use, short string, codecs map[string]stream.Transform) *cobra.Command {
	var (
		codec   string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   use + " [file|-]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := codecs[codec]
			if !ok {
				return fmt.Errorf("unknown codec %q (supported: base64, gzip, snappy)", codec)
			}

			src, err := input(cmd, argOrStdin(args))
			if err != nil {
				return err
			}
			f, err := stream.NewTransformFactory(a.instrument("input", src), kind)
			if err != nil {
				return err
			}
			a.logger.Debug("transforming", "transform", kind.String())
			return a.output(cmd, outPath, a.instrument(kind.String(), f))
		},
	}
	cmd.Flags().StringVar(&codec, "codec", "base64", "codec: base64, gzip or snappy")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newRootNameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "root [file|-]",
		Short: "Print the local name of the root element of an XML document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := input(cmd, argOrStdin(args))
			if err != nil {
				return err
			}

			h, err := content.NewHandler(content.NewMemorySlot(1), content.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer h.Close()

			if err := h.LoadFrom(content.FromFactory(a.instrument("input", src))); err != nil {
				return err
			}
			name, err := h.RootElementName()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
			return err
		},
	}
}

func newMIMECmd(a *app) *cobra.Command {
	var (
		rootType       string
		attachmentType string
		transfer       string
		outPath        string
	)

	cmd := &cobra.Command{
		Use:   "mime <root> [attachment...]",
		Short: "Write a multipart/related package",
		Long: `Writes a multipart/related package made of the root document and the
attachments. The first line of the output is the Content-Type header.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rootSrc, err := stream.NewFileFactory(args[0])
			if err != nil {
				return err
			}
			root, err := mime.CreatePart(a.instrument("root", rootSrc), rootType)
			if err != nil {
				return err
			}

			var attachments []mime.Part
			for i, path := range args[1:] {
				src, err := stream.NewFileFactory(path)
				if err != nil {
					return err
				}
				part, err := mime.CreatePartWithID(a.instrument(fmt.Sprintf("attachment-%d", i), src), attachmentType, fmt.Sprintf("attachment-%d", i+1))
				if err != nil {
					return err
				}
				part.ContentTransfer = transfer
				attachments = append(attachments, part)
			}

			msg := mime.NewMessage(root, attachments...)
			body, err := msg.Factory()
			if err != nil {
				return err
			}

			header, err := stream.NewBytesFactory([]byte("Content-Type: " + msg.MediaType() + "\r\n\r\n"))
			if err != nil {
				return err
			}
			out, err := stream.NewMultiSourceFactory([]stream.Factory{header, body})
			if err != nil {
				return err
			}
			return a.output(cmd, outPath, out)
		},
	}
	cmd.Flags().StringVar(&rootType, "root-type", mime.ContentTypeApplicationXML, "content type of the root part")
	cmd.Flags().StringVar(&attachmentType, "attachment-type", mime.ContentTypeOctetStream, "content type of the attachments")
	cmd.Flags().StringVar(&transfer, "transfer", mime.TransferBase64, "transfer encoding of the attachments: base64 or binary")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	return cmd
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return strings.TrimSpace(args[0])
}
