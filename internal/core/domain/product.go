package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID             string
	Name           string
	Price          decimal.Decimal
	AlcoholPercent decimal.NullDecimal // invalid for non-alcoholic items
	Brand          string
	Category       string
	ImageURL       string
}

type Category struct {
	ID          string
	Title       string
	Icon        string
	Description string
}

// CategoryAll selects every category when filtering.
const CategoryAll = "all"
