package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/click-n-sip/internal/core/domain"
)

const placeholderImage = "/placeholder.svg"

// StaticCatalog serves the built-in product list.
type StaticCatalog struct{}

func NewStaticCatalog() StaticCatalog {
	return StaticCatalog{}
}

func (StaticCatalog) LoadCatalog(ctx context.Context) ([]domain.Product, []domain.Category, error) {
	return SeedProducts(), SeedCategories(), nil
}

func SeedProducts() []domain.Product {
	abv := func(s string) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.RequireFromString(s))
	}
	return []domain.Product{
		{ID: "1", Name: "Cabernet Sauvignon Reserve", Price: decimal.RequireFromString("45.99"), AlcoholPercent: abv("13.5"), Brand: "Napa Valley Winery", Category: "wine", ImageURL: placeholderImage},
		{ID: "2", Name: "Premium Whiskey", Price: decimal.RequireFromString("89.99"), AlcoholPercent: abv("40"), Brand: "Highland Distillery", Category: "liquor", ImageURL: placeholderImage},
		{ID: "3", Name: "Craft IPA", Price: decimal.RequireFromString("12.99"), AlcoholPercent: abv("6.2"), Brand: "Local Brewery", Category: "beer", ImageURL: placeholderImage},
		{ID: "4", Name: "Sparkling Water", Price: decimal.RequireFromString("3.99"), Brand: "Pure Springs", Category: "soft-drinks", ImageURL: placeholderImage},
		{ID: "5", Name: "Pinot Grigio", Price: decimal.RequireFromString("28.99"), AlcoholPercent: abv("12"), Brand: "Italian Vineyards", Category: "wine", ImageURL: placeholderImage},
		{ID: "6", Name: "Premium Vodka", Price: decimal.RequireFromString("65.99"), AlcoholPercent: abv("40"), Brand: "Crystal Clear", Category: "liquor", ImageURL: placeholderImage},
	}
}

func SeedCategories() []domain.Category {
	return []domain.Category{
		{ID: "wine", Title: "Wine", Icon: "🍷", Description: "Red, White & Rosé"},
		{ID: "liquor", Title: "Liquor", Icon: "🥃", Description: "Whiskey, Vodka & More"},
		{ID: "beer", Title: "Beer", Icon: "🍺", Description: "Craft & Premium"},
		{ID: "soft-drinks", Title: "Soft Drinks", Icon: "🥤", Description: "Refreshing Beverages"},
	}
}
