// Package manifest builds stream factory trees from YAML.
//
// A manifest describes one source node. Every node sets exactly one of
// text, file, region, xml, transform or concat:
//
//	source:
//	  concat:
//	    - text: "<envelope><payload>"
//	    - transform: base64-encode
//	      source:
//	        file: invoice.pdf
//	    - text: "</payload></envelope>"
//
// Relative file paths are resolved against the directory of the manifest.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-payload/pkg/content"
	"github.com/sirosfoundation/go-payload/pkg/stream"
)

// Manifest is the root of a manifest file
type Manifest struct {
	Source Node `yaml:"source"`

	baseDir string
}

// Node is one source of the tree
type Node struct {
	// Name labels the node in metrics; defaults to its path in the tree
	Name string `yaml:"name,omitempty"`

	Text   *string     `yaml:"text,omitempty"`
	File   string      `yaml:"file,omitempty"`
	Region *RegionNode `yaml:"region,omitempty"`

	// XML is parsed once and serialised on every open
	XML    *string `yaml:"xml,omitempty"`
	Indent int     `yaml:"indent,omitempty"`

	Transform string `yaml:"transform,omitempty"`
	Source    *Node  `yaml:"source,omitempty"`

	Concat []*Node `yaml:"concat,omitempty"`
}

// RegionNode selects length bytes at offset of a text or file
type RegionNode struct {
	Text   *string `yaml:"text,omitempty"`
	File   string  `yaml:"file,omitempty"`
	Offset int     `yaml:"offset"`
	Length int     `yaml:"length"`
}

// BuildOption configures Build
type BuildOption func(*builder)

// WithWrapper passes every built node factory through wrap, e.g. to
// instrument it with metrics
func WithWrapper(wrap func(name string, f stream.Factory) stream.Factory) BuildOption {
	return func(b *builder) {
		b.wrap = wrap
	}
}

// Load reads a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse reads a manifest; baseDir resolves relative file paths
func Parse(data []byte, baseDir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	m.baseDir = baseDir
	return &m, nil
}

// Build turns the manifest into a factory
func (m *Manifest) Build(opts ...BuildOption) (stream.Factory, error) {
	b := &builder{baseDir: m.baseDir}
	for _, opt := range opts {
		opt(b)
	}
	return b.build(&m.Source, "source")
}

type builder struct {
	baseDir string
	wrap    func(name string, f stream.Factory) stream.Factory
}

func (b *builder) build(n *Node, path string) (stream.Factory, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: %s: missing node", stream.ErrInvalidArgument, path)
	}
	if err := n.validate(path); err != nil {
		return nil, err
	}

	f, err := b.buildNode(n, path)
	if err != nil {
		return nil, err
	}

	if b.wrap != nil {
		name := n.Name
		if name == "" {
			name = path
		}
		f = b.wrap(name, f)
	}
	return f, nil
}

func (b *builder) buildNode(n *Node, path string) (stream.Factory, error) {
	switch {
	case n.Text != nil:
		return stream.NewBytesFactory([]byte(*n.Text))

	case n.File != "":
		return stream.NewFileFactory(b.resolve(n.File))

	case n.Region != nil:
		return b.buildRegion(n.Region, path)

	case n.XML != nil:
		doc := etree.NewDocument()
		if err := doc.ReadFromString(*n.XML); err != nil {
			return nil, fmt.Errorf("%w: %s: invalid xml: %v", stream.ErrMalformedContent, path, err)
		}
		if doc.Root() == nil {
			return nil, fmt.Errorf("%w: %s: xml has no root element", stream.ErrMalformedContent, path)
		}
		if n.Indent > 0 {
			doc.Indent(n.Indent)
		}
		return content.FromDocument(doc).Factory()

	case n.Transform != "":
		kind, err := stream.ParseTransform(n.Transform)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		child, err := b.build(n.Source, path+".source")
		if err != nil {
			return nil, err
		}
		return stream.NewTransformFactory(child, kind)

	default:
		sources := make([]stream.Factory, 0, len(n.Concat))
		for i, child := range n.Concat {
			f, err := b.build(child, fmt.Sprintf("%s.concat[%d]", path, i))
			if err != nil {
				return nil, err
			}
			sources = append(sources, f)
		}
		return stream.NewMultiSourceFactory(sources)
	}
}

func (b *builder) buildRegion(r *RegionNode, path string) (stream.Factory, error) {
	var buf []byte
	switch {
	case r.Text != nil && r.File == "":
		buf = []byte(*r.Text)
	case r.Text == nil && r.File != "":
		data, err := os.ReadFile(b.resolve(r.File))
		if err != nil {
			return nil, fmt.Errorf("%s: reading region file: %w", path, err)
		}
		buf = data
	default:
		return nil, fmt.Errorf("%w: %s: region needs exactly one of text or file", stream.ErrInvalidArgument, path)
	}

	f, err := stream.NewRegionFactory(buf, r.Offset, r.Length)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (b *builder) resolve(file string) string {
	if filepath.IsAbs(file) || b.baseDir == "" {
		return file
	}
	return filepath.Join(b.baseDir, file)
}

func (n *Node) validate(path string) error {
	kinds := 0
	if n.Text != nil {
		kinds++
	}
	if n.File != "" {
		kinds++
	}
	if n.Region != nil {
		kinds++
	}
	if n.XML != nil {
		kinds++
	}
	if n.Transform != "" {
		kinds++
	}
	if n.Concat != nil {
		kinds++
	}

	if kinds != 1 {
		return fmt.Errorf("%w: %s: node must set exactly one of text, file, region, xml, transform or concat", stream.ErrInvalidArgument, path)
	}
	if n.Source != nil && n.Transform == "" {
		return fmt.Errorf("%w: %s: source is only valid with transform", stream.ErrInvalidArgument, path)
	}
	return nil
}
