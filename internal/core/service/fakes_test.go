package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/click-n-sip/internal/core/domain"
)

// Mock Notifier
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Title)
	}
	return out
}

func (n *recordingNotifier) last() (domain.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return domain.Notification{}, false
	}
	return n.sent[len(n.sent)-1], true
}

// Mock OrderEventPublisher
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ActiveOrder
}

func (p *recordingPublisher) PublishOrderStatus(ctx context.Context, order domain.ActiveOrder) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, order)
	return nil
}

func (p *recordingPublisher) statusesFor(orderID string) []domain.OrderStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.OrderStatus
	for _, e := range p.events {
		if e.ID == orderID {
			out = append(out, e.Status)
		}
	}
	return out
}

func (p *recordingPublisher) waitForEvents(t *testing.T, orderID string, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(p.statusesFor(orderID)) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d events for %s, got %v", n, orderID, p.statusesFor(orderID))
}

func seedCatalog() *CatalogService {
	return NewCatalogService([]domain.Product{
		{ID: "1", Name: "Cabernet Sauvignon Reserve", Price: decimal.RequireFromString("45.99"), AlcoholPercent: decimal.NewNullDecimal(decimal.RequireFromString("13.5")), Brand: "Napa Valley Winery", Category: "wine"},
		{ID: "2", Name: "Premium Whiskey", Price: decimal.RequireFromString("89.99"), AlcoholPercent: decimal.NewNullDecimal(decimal.NewFromInt(40)), Brand: "Highland Distillery", Category: "liquor"},
		{ID: "3", Name: "Craft IPA", Price: decimal.RequireFromString("12.99"), AlcoholPercent: decimal.NewNullDecimal(decimal.RequireFromString("6.2")), Brand: "Local Brewery", Category: "beer"},
		{ID: "4", Name: "Sparkling Water", Price: decimal.RequireFromString("3.99"), Brand: "Pure Springs", Category: "soft-drinks"},
		{ID: "5", Name: "Pinot Grigio", Price: decimal.RequireFromString("28.99"), AlcoholPercent: decimal.NewNullDecimal(decimal.NewFromInt(12)), Brand: "Italian Vineyards", Category: "wine"},
		{ID: "6", Name: "Premium Vodka", Price: decimal.RequireFromString("65.99"), AlcoholPercent: decimal.NewNullDecimal(decimal.NewFromInt(40)), Brand: "Crystal Clear", Category: "liquor"},
	}, []domain.Category{
		{ID: "wine", Title: "Wine", Icon: "🍷", Description: "Red, White & Rosé"},
		{ID: "liquor", Title: "Liquor", Icon: "🥃", Description: "Whiskey, Vodka & More"},
		{ID: "beer", Title: "Beer", Icon: "🍺", Description: "Craft & Premium"},
		{ID: "soft-drinks", Title: "Soft Drinks", Icon: "🥤", Description: "Refreshing Beverages"},
	})
}

func waitForStatus(t *testing.T, svc *OrderService, want domain.OrderStatus, timeout time.Duration) domain.ActiveOrder {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if order, ok := svc.Current(); ok && order.Status == want {
			return order
		}
		time.Sleep(5 * time.Millisecond)
	}
	order, _ := svc.Current()
	t.Fatalf("expected status %s within %v, got %s", want, timeout, order.Status)
	return order
}
