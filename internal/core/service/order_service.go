package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/port"
)

const (
	orderIDLength  = 9
	publishTimeout = 2 * time.Second
)

var DefaultStatusOffsets = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}

// OrderService tracks the active order of one session and walks it through
// preparing, ready, out-for-delivery and delivered on a fixed schedule.
// Pending transitions are keyed by order id; starting an order cancels the
// transitions still pending for any earlier one.
type OrderService struct {
	mu        sync.Mutex
	publisher port.OrderEventPublisher
	offsets   []time.Duration
	estimate  string
	current   *domain.ActiveOrder
	pending   map[string][]*time.Timer
	newID     func() string

	// publishMu orders publishes. lastID and lastRank hold the furthest
	// status sent so far, so a firing that lost the race is dropped.
	publishMu sync.Mutex
	lastID    string
	lastRank  int
}

func NewOrderService(publisher port.OrderEventPublisher, offsets []time.Duration, estimate string) *OrderService {
	if len(offsets) == 0 {
		offsets = DefaultStatusOffsets
	}
	return &OrderService{
		publisher: publisher,
		offsets:   append([]time.Duration(nil), offsets...),
		estimate:  estimate,
		pending:   make(map[string][]*time.Timer),
		newID:     newOrderID,
	}
}

// Start makes draft the active order with status preparing and schedules its
// status transitions.
func (s *OrderService) Start(ctx context.Context, draft domain.ActiveOrder) domain.ActiveOrder {
	s.mu.Lock()
	for id := range s.pending {
		s.cancelLocked(id)
	}

	now := time.Now()
	order := draft
	order.ID = s.newID()
	order.Status = domain.OrderStatusPreparing
	order.EstimatedTime = s.estimate
	order.Items = append([]domain.CartLine(nil), draft.Items...)
	order.CreatedAt = now
	order.UpdatedAt = now
	s.current = &order

	timers := make([]*time.Timer, 0, len(s.offsets))
	for _, d := range s.offsets {
		id := order.ID
		timers = append(timers, time.AfterFunc(d, func() { s.advance(id) }))
	}
	s.pending[order.ID] = timers
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, snapshot)
	return snapshot
}

func (s *OrderService) Current() (domain.ActiveOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.ActiveOrder{}, false
	}
	return s.snapshotLocked(), true
}

// Cancel stops the pending transitions of orderID. It reports whether any were pending.
func (s *OrderService) Cancel(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(orderID)
}

// Stop cancels every pending transition and forgets the active order.
func (s *OrderService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.pending {
		s.cancelLocked(id)
	}
	s.current = nil
}

func (s *OrderService) advance(orderID string) {
	s.mu.Lock()
	if s.current == nil || s.current.ID != orderID {
		s.mu.Unlock()
		return
	}
	next, ok := s.current.Status.Next()
	if !ok {
		s.mu.Unlock()
		return
	}
	s.current.Status = next
	s.current.UpdatedAt = time.Now()
	if next == domain.OrderStatusDelivered {
		delete(s.pending, orderID)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	log.Printf("order %s: status %s", orderID, next)
	s.publish(context.Background(), snapshot)
}

func (s *OrderService) cancelLocked(orderID string) bool {
	timers, ok := s.pending[orderID]
	if !ok {
		return false
	}
	for _, t := range timers {
		t.Stop()
	}
	delete(s.pending, orderID)
	return true
}

func (s *OrderService) snapshotLocked() domain.ActiveOrder {
	order := *s.current
	order.Items = append([]domain.CartLine(nil), s.current.Items...)
	return order
}

func (s *OrderService) publish(ctx context.Context, order domain.ActiveOrder) {
	if s.publisher == nil {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	rank := order.Status.Rank()
	if order.ID == s.lastID && rank <= s.lastRank {
		return
	}
	s.lastID, s.lastRank = order.ID, rank

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishOrderStatus(ctx, order); err != nil {
		log.Printf("order %s: publish status %s failed: %v", order.ID, order.Status, err)
	}
}

func newOrderID() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(token[:orderIDLength])
}
