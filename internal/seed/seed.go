// Package seed loads the startup catalog and store profile.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	domain "github.com/Shreyas-sv10/Shop2/internal/domain"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// ErrInvalidSeed reports a seed document that cannot produce a usable catalog.
var ErrInvalidSeed = errors.New("seed: invalid catalog")

// Catalog is a decoded seed document.
type Catalog struct {
	Store    StoreProfile
	Products []domain.Product
}

// StoreProfile carries the store fields a seed may provide. Config values take precedence.
type StoreProfile struct {
	Name           string
	Address        string
	FooterMarkdown string
}

type document struct {
	Store struct {
		Name    string `yaml:"name"`
		Address string `yaml:"address"`
		Footer  string `yaml:"footer"`
	} `yaml:"store"`
	Products []productEntry `yaml:"products"`
}

type productEntry struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
	Unit  string `yaml:"unit"`
	Image string `yaml:"image"`
}

// Default decodes the embedded nine-product catalog.
func Default() (Catalog, error) {
	return Parse(embeddedCatalog)
}

// Load reads the seed at path, or the embedded seed when path is blank.
func Load(path string) (Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	catalog, err := Parse(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// Parse decodes a YAML seed document and validates every product.
func Parse(data []byte) (Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if len(doc.Products) == 0 {
		return Catalog{}, fmt.Errorf("%w: no products", ErrInvalidSeed)
	}

	seen := make(map[int]struct{}, len(doc.Products))
	products := make([]domain.Product, 0, len(doc.Products))
	for i, entry := range doc.Products {
		name := strings.TrimSpace(entry.Name)
		switch {
		case entry.ID <= 0:
			return Catalog{}, fmt.Errorf("%w: product %d has no positive id", ErrInvalidSeed, i)
		case name == "":
			return Catalog{}, fmt.Errorf("%w: product %d has no name", ErrInvalidSeed, entry.ID)
		}
		if _, dup := seen[entry.ID]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate product id %d", ErrInvalidSeed, entry.ID)
		}
		seen[entry.ID] = struct{}{}

		price, err := domain.ParseAmount(entry.Price)
		if err != nil || price.IsNegative() {
			return Catalog{}, fmt.Errorf("%w: product %d price %q", ErrInvalidSeed, entry.ID, entry.Price)
		}
		unit := domain.ParseUnit(entry.Unit)
		if unit == "" {
			return Catalog{}, fmt.Errorf("%w: product %d has no unit", ErrInvalidSeed, entry.ID)
		}
		products = append(products, domain.Product{
			ID:        entry.ID,
			Name:      name,
			UnitPrice: price,
			Unit:      unit,
			ImageRef:  strings.TrimSpace(entry.Image),
		})
	}

	return Catalog{
		Store: StoreProfile{
			Name:           strings.TrimSpace(doc.Store.Name),
			Address:        strings.TrimSpace(doc.Store.Address),
			FooterMarkdown: strings.TrimSpace(doc.Store.Footer),
		},
		Products: products,
	}, nil
}
