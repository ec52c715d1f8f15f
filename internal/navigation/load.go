package navigation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_tree.yaml
var defaultTree []byte

type document struct {
	Nodes []Node `yaml:"nodes"`
}

// Load parses a YAML navigation document and validates it.
func Load(r io.Reader) (*Tree, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New()
		}
		return nil, fmt.Errorf("navigation: decode: %w", err)
	}
	return New(doc.Nodes...)
}

// LoadFile reads a navigation document from disk.
func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("navigation: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the console's built-in navigation tree.
func Default() (*Tree, error) {
	return Load(bytes.NewReader(defaultTree))
}
