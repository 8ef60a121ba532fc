package service

import (
	"strings"

	"github.com/rl1809/click-n-sip/internal/core/domain"
)

// Filter returns the products in categoryID (or every category for "all")
// whose name or brand contains search, ignoring case. Source order is kept.
func Filter(products []domain.Product, categoryID, search string) []domain.Product {
	query := strings.ToLower(search)

	var out []domain.Product
	for _, p := range products {
		if categoryID != domain.CategoryAll && p.Category != categoryID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Brand), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}
