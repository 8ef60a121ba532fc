package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/port"
)

type ProductLookup interface {
	Product(id string) (domain.Product, bool)
}

// CartService holds at most one line per product, in the order products were first added.
type CartService struct {
	mu       sync.Mutex
	products ProductLookup
	notifier port.Notifier
	lines    []domain.CartLine
}

func NewCartService(products ProductLookup, notifier port.Notifier) *CartService {
	return &CartService{
		products: products,
		notifier: notifier,
	}
}

// AddToCart increments the line for productID or creates it with quantity 1.
// Unknown products are ignored.
func (s *CartService) AddToCart(ctx context.Context, productID string) {
	product, ok := s.products.Product(productID)
	if !ok {
		return
	}

	s.mu.Lock()
	if i := s.indexOf(productID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Brand:     product.Brand,
			Price:     product.Price,
			Quantity:  1,
		})
	}
	s.mu.Unlock()

	s.notifier.Notify(ctx, domain.Notification{
		Title:    "Added to Cart",
		Message:  fmt.Sprintf("%s has been added to your cart.", product.Name),
		Severity: domain.SeverityInfo,
	})
}

// UpdateQuantity sets the quantity of an existing line. Zero or negative
// quantities remove the line.
func (s *CartService) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, productID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(productID); i >= 0 {
		s.lines[i].Quantity = quantity
	}
}

func (s *CartService) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	if i := s.indexOf(productID); i >= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
	s.mu.Unlock()

	s.notifier.Notify(ctx, domain.Notification{
		Title:    "Item Removed",
		Message:  "Item has been removed from your cart.",
		Severity: domain.SeverityInfo,
	})
}

func (s *CartService) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()
}

func (s *CartService) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartLine(nil), s.lines...)
}

func (s *CartService) Line(productID string) (domain.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(productID); i >= 0 {
		return s.lines[i], true
	}
	return domain.CartLine{}, false
}

func (s *CartService) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, l := range s.lines {
		count += l.Quantity
	}
	return count
}

func (s *CartService) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return linesTotal(s.lines)
}

func (s *CartService) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

func (s *CartService) indexOf(productID string) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func linesTotal(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
