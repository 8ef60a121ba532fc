package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/port"
)

// CatalogService serves read-only snapshots of the product catalog.
// Admin edits swap in a new slice; products already handed out are never mutated.
type CatalogService struct {
	mu         sync.RWMutex
	products   []domain.Product
	categories []domain.Category
}

func NewCatalogService(products []domain.Product, categories []domain.Category) *CatalogService {
	return &CatalogService{
		products:   append([]domain.Product(nil), products...),
		categories: append([]domain.Category(nil), categories...),
	}
}

// LoadCatalogService builds the catalog from a provider at startup.
func LoadCatalogService(ctx context.Context, repo port.CatalogRepository) (*CatalogService, error) {
	products, categories, err := repo.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return NewCatalogService(products, categories), nil
}

func (c *CatalogService) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Product(nil), c.products...)
}

func (c *CatalogService) Categories() []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Category(nil), c.categories...)
}

func (c *CatalogService) Product(id string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (c *CatalogService) Filter(categoryID, search string) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Filter(c.products, categoryID, search)
}
