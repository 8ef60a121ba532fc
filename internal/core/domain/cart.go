package domain

import "github.com/shopspring/decimal"

// CartLine keeps the name, brand and price the product had when it was first added.
type CartLine struct {
	ProductID string
	Name      string
	Brand     string
	Price     decimal.Decimal
	Quantity  int
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
