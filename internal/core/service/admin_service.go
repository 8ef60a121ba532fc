package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/port"
)

const defaultImageURL = "/placeholder.svg"

type ProductInput struct {
	Name           string
	Price          decimal.Decimal
	AlcoholPercent decimal.NullDecimal
	Brand          string
	Category       string
	ImageURL       string
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Brand) == "" || in.Price.IsNegative() {
		return ErrMissingFields
	}
	if in.AlcoholPercent.Valid && in.AlcoholPercent.Decimal.IsNegative() {
		return ErrMissingFields
	}
	return nil
}

// AdminService edits the shared catalog. Every edit publishes a new snapshot;
// cart lines keep the values they were created with.
type AdminService struct {
	catalog  *CatalogService
	notifier port.Notifier
}

func NewAdminService(catalog *CatalogService, notifier port.Notifier) *AdminService {
	return &AdminService{catalog: catalog, notifier: notifier}
}

func (a *AdminService) AddProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}

	product := in.toProduct(uuid.NewString())
	a.catalog.mu.Lock()
	a.catalog.products = append(append([]domain.Product(nil), a.catalog.products...), product)
	a.catalog.mu.Unlock()

	a.notifier.Notify(ctx, domain.Notification{
		Title:    "Product Added",
		Message:  fmt.Sprintf("%s has been added successfully.", product.Name),
		Severity: domain.SeverityInfo,
	})
	return product, nil
}

func (a *AdminService) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	if err := in.validate(); err != nil {
		return domain.Product{}, err
	}

	product := in.toProduct(id)
	a.catalog.mu.Lock()
	next := append([]domain.Product(nil), a.catalog.products...)
	found := false
	for i := range next {
		if next[i].ID == id {
			next[i] = product
			found = true
			break
		}
	}
	if found {
		a.catalog.products = next
	}
	a.catalog.mu.Unlock()

	if !found {
		return domain.Product{}, fmt.Errorf("update product %s: %w", id, ErrProductNotFound)
	}
	a.notifier.Notify(ctx, domain.Notification{
		Title:    "Product Updated",
		Message:  fmt.Sprintf("%s has been updated successfully.", product.Name),
		Severity: domain.SeverityInfo,
	})
	return product, nil
}

func (a *AdminService) DeleteProduct(ctx context.Context, id string) error {
	a.catalog.mu.Lock()
	next := make([]domain.Product, 0, len(a.catalog.products))
	for _, p := range a.catalog.products {
		if p.ID != id {
			next = append(next, p)
		}
	}
	found := len(next) != len(a.catalog.products)
	if found {
		a.catalog.products = next
	}
	a.catalog.mu.Unlock()

	if !found {
		return fmt.Errorf("delete product %s: %w", id, ErrProductNotFound)
	}
	a.notifier.Notify(ctx, domain.Notification{
		Title:    "Product Deleted",
		Message:  "Product has been removed successfully.",
		Severity: domain.SeverityInfo,
	})
	return nil
}

func (in ProductInput) toProduct(id string) domain.Product {
	image := in.ImageURL
	if image == "" {
		image = defaultImageURL
	}
	return domain.Product{
		ID:             id,
		Name:           strings.TrimSpace(in.Name),
		Price:          in.Price,
		AlcoholPercent: in.AlcoholPercent,
		Brand:          strings.TrimSpace(in.Brand),
		Category:       in.Category,
		ImageURL:       image,
	}
}
