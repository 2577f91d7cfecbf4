// Package catalog provides product snapshots used to price orders.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
)

// Catalog resolves products by id.
type Catalog interface {
	Product(ctx context.Context, id string) (*model.Product, error)
}

// FileCatalog serves products loaded once from a JSON file.
type FileCatalog struct {
	products map[string]model.Product
}

type catalogFile struct {
	Products []model.Product `json:"products"`
}

// NewFileCatalog loads {"products":[...]} from path.
func NewFileCatalog(path string) (*FileCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewStaticCatalog(file.Products...)
}

// NewStaticCatalog builds a catalog from the given products.
func NewStaticCatalog(products ...model.Product) (*FileCatalog, error) {
	c := &FileCatalog{products: make(map[string]model.Product, len(products))}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog product without id")
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("catalog product %s has negative price", p.ID)
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog product %s", p.ID)
		}
		c.products[p.ID] = p
	}
	return c, nil
}

// Product returns a copy of the catalog entry, or ErrNotFound for unknown ids.
func (c *FileCatalog) Product(_ context.Context, id string) (*model.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &p, nil
}

// Len reports the number of products.
func (c *FileCatalog) Len() int { return len(c.products) }
