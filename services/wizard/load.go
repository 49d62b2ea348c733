package wizard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// variantsFile is the top-level shape of a variants YAML document.
type variantsFile struct {
	Variants []Config `yaml:"variants"`
}

// LoadVariants decodes a YAML document of the form
//
//	variants:
//	  - id: smm
//	    steps: [...]
//
// and builds every variant in it. Unknown keys and further documents are
// rejected.
func LoadVariants(r io.Reader) ([]*Variant, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc variantsFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode variants: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, fmt.Errorf("failed to decode variants: %w", err)
		}
		return nil, errors.New("variants file must hold a single YAML document")
	}

	out := make([]*Variant, 0, len(doc.Variants))
	for i, cfg := range doc.Variants {
		v, err := NewVariant(cfg)
		if err != nil {
			return nil, fmt.Errorf("variant [%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LoadVariantsFile opens path and calls LoadVariants.
func LoadVariantsFile(path string) ([]*Variant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open variants file: %w", err)
	}
	defer f.Close()

	vs, err := LoadVariants(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vs, nil
}
