package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/farmasearch/backend/internal/domain"
)

//go:embed products.json
var embeddedProducts []byte

// Catalog is an immutable, ordered product list loaded once at startup
type Catalog struct {
	products []domain.Product
	source   string
}

// Load reads the product catalog from a JSON array file.
// An empty path loads the catalog bundled with the binary.
func Load(path string) (*Catalog, error) {
	data := embeddedProducts
	source := "embedded"

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
		}
		data = raw
		source = path
	}

	catalog, err := Parse(data)
	if err != nil {
		return nil, err
	}
	catalog.source = source

	log.Printf("[CATALOG] Loaded %d products from %s", catalog.Len(), source)
	return catalog, nil
}

// Parse decodes a JSON array of products
func Parse(data []byte) (*Catalog, error) {
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("%w: invalid catalog JSON: %v", domain.ErrCatalogUnavailable, err)
	}
	if products == nil {
		return nil, fmt.Errorf("%w: catalog is not a product array", domain.ErrCatalogUnavailable)
	}
	return &Catalog{products: products, source: "inline"}, nil
}

// Products returns a copy of the catalog in file order
func (c *Catalog) Products() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the number of products
func (c *Catalog) Len() int {
	return len(c.products)
}

// Source describes where the catalog was loaded from
func (c *Catalog) Source() string {
	return c.source
}
