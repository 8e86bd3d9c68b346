package exercise

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed exercises.yaml
var defaultCatalog []byte

// catalogFile is the on-disk layout of an exercise catalog.
type catalogFile struct {
	Exercises []Definition `yaml:"exercises"`
}

// Catalog is an ID-indexed, validated set of exercises. It keeps the
// order exercises were declared in.
type Catalog struct {
	byID  map[string]Definition
	order []string
}

// NewCatalog validates the definitions and indexes them by ID.
func NewCatalog(definitions []Definition) (*Catalog, error) {
	c := &Catalog{
		byID:  make(map[string]Definition, len(definitions)),
		order: make([]string, 0, len(definitions)),
	}

	var errs []error
	for _, def := range definitions {
		if err := def.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := c.byID[def.ID]; ok {
			errs = append(errs, fmt.Errorf("exercise %q: duplicate id", def.ID))
			continue
		}

		c.byID[def.ID] = def.withDefaults()
		c.order = append(c.order, def.ID)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	return c, nil
}

// Load reads a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var file catalogFile
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	return NewCatalog(file.Exercises)
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	return Load(f)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// Get returns the exercise with the given ID.
func (c *Catalog) Get(id string) (Definition, error) {
	def, ok := c.byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrExerciseNotFound, id)
	}
	return def, nil
}

// List returns every exercise in declaration order.
func (c *Catalog) List() []Definition {
	defs := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		defs = append(defs, c.byID[id])
	}
	return defs
}

func (c *Catalog) Len() int {
	return len(c.order)
}
