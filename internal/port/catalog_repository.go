package port

import (
	"context"

	"github.com/rl1809/click-n-sip/internal/core/domain"
)

type CatalogRepository interface {
	// LoadCatalog returns every product and category, in display order
	LoadCatalog(ctx context.Context) ([]domain.Product, []domain.Category, error)
}
