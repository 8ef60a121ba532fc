package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/click-n-sip/internal/core/domain"
)

var fastOffsets = []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}

func TestStart_Preparing(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewOrderService(pub, fastOffsets, "25-30 minutes")
	defer svc.Stop()

	order := svc.Start(context.Background(), domain.ActiveOrder{Address: "1 Main St"})

	if order.Status != domain.OrderStatusPreparing {
		t.Errorf("expected preparing, got %s", order.Status)
	}
	if order.EstimatedTime != "25-30 minutes" {
		t.Errorf("expected estimate, got %q", order.EstimatedTime)
	}
	if !regexp.MustCompile(`^[0-9A-Z]{9}$`).MatchString(order.ID) {
		t.Errorf("expected 9 uppercase alphanumerics, got %q", order.ID)
	}
	if order.Address != "1 Main St" {
		t.Errorf("expected draft fields kept, got %q", order.Address)
	}
}

func TestStart_ProgressesInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewOrderService(pub, fastOffsets, "")
	defer svc.Stop()

	order := svc.Start(context.Background(), domain.ActiveOrder{})
	waitForStatus(t, svc, domain.OrderStatusDelivered, time.Second)
	pub.waitForEvents(t, order.ID, 4, time.Second)

	want := []domain.OrderStatus{
		domain.OrderStatusPreparing,
		domain.OrderStatusReady,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
	}
	got := pub.statusesFor(order.ID)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if svc.Cancel(order.ID) {
		t.Error("delivered order must have no pending transitions")
	}
}

func TestStart_CancelsPreviousOrder(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewOrderService(pub, fastOffsets, "")
	defer svc.Stop()

	first := svc.Start(context.Background(), domain.ActiveOrder{})
	second := svc.Start(context.Background(), domain.ActiveOrder{})

	if svc.Cancel(first.ID) {
		t.Error("expected first order's transitions to be cancelled already")
	}

	waitForStatus(t, svc, domain.OrderStatusDelivered, time.Second)
	pub.waitForEvents(t, second.ID, 4, time.Second)
	time.Sleep(20 * time.Millisecond)

	if got := pub.statusesFor(first.ID); len(got) != 1 {
		t.Errorf("expected only the preparing event for the first order, got %v", got)
	}
	if got := pub.statusesFor(second.ID); len(got) != 4 {
		t.Errorf("expected 4 events for the second order, got %v", got)
	}
}

func TestAdvance_IgnoresStaleOrder(t *testing.T) {
	svc := NewOrderService(nil, []time.Duration{time.Hour}, "")
	defer svc.Stop()

	svc.Start(context.Background(), domain.ActiveOrder{})
	svc.advance("STALE0000")

	order, _ := svc.Current()
	if order.Status != domain.OrderStatusPreparing {
		t.Errorf("expected preparing, got %s", order.Status)
	}
}

func TestAdvance_NeverPassesDelivered(t *testing.T) {
	svc := NewOrderService(nil, []time.Duration{time.Hour}, "")
	defer svc.Stop()

	order := svc.Start(context.Background(), domain.ActiveOrder{})
	for i := 0; i < 6; i++ {
		svc.advance(order.ID)
	}

	current, _ := svc.Current()
	if current.Status != domain.OrderStatusDelivered {
		t.Errorf("expected delivered, got %s", current.Status)
	}
}

func TestPublish_DropsOutOfOrderStatus(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewOrderService(pub, []time.Duration{time.Hour}, "")
	defer svc.Stop()

	order := svc.Start(context.Background(), domain.ActiveOrder{})

	later := order
	later.Status = domain.OrderStatusOutForDelivery
	earlier := order
	earlier.Status = domain.OrderStatusReady
	svc.publish(context.Background(), later)
	svc.publish(context.Background(), earlier)
	svc.publish(context.Background(), later)

	got := pub.statusesFor(order.ID)
	want := []domain.OrderStatus{domain.OrderStatusPreparing, domain.OrderStatusOutForDelivery}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestStart_SimultaneousTransitionsPublishForward(t *testing.T) {
	pub := &recordingPublisher{}
	same := 5 * time.Millisecond
	svc := NewOrderService(pub, []time.Duration{same, same, same}, "")
	defer svc.Stop()

	order := svc.Start(context.Background(), domain.ActiveOrder{})
	waitForStatus(t, svc, domain.OrderStatusDelivered, time.Second)

	deadline := time.Now().Add(time.Second)
	var got []domain.OrderStatus
	for time.Now().Before(deadline) {
		got = pub.statusesFor(order.ID)
		if got[len(got)-1] == domain.OrderStatusDelivered {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got[len(got)-1] != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered to be published last, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Rank() <= got[i-1].Rank() {
			t.Fatalf("expected statuses to only move forward, got %v", got)
		}
	}
}

func TestCancel_StopsProgression(t *testing.T) {
	svc := NewOrderService(nil, fastOffsets, "")
	defer svc.Stop()

	order := svc.Start(context.Background(), domain.ActiveOrder{})
	if !svc.Cancel(order.ID) {
		t.Fatal("expected pending transitions")
	}
	time.Sleep(50 * time.Millisecond)

	current, _ := svc.Current()
	if current.Status != domain.OrderStatusPreparing {
		t.Errorf("expected preparing after cancel, got %s", current.Status)
	}
}

func TestStart_Concurrent(t *testing.T) {
	svc := NewOrderService(nil, []time.Duration{time.Hour}, "")
	defer svc.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Start(context.Background(), domain.ActiveOrder{})
		}()
	}
	wg.Wait()

	svc.mu.Lock()
	pending := len(svc.pending)
	svc.mu.Unlock()
	if pending != 1 {
		t.Errorf("expected exactly 1 pending schedule, got %d", pending)
	}
}

func TestStop_ClearsCurrent(t *testing.T) {
	svc := NewOrderService(nil, fastOffsets, "")

	svc.Start(context.Background(), domain.ActiveOrder{})
	svc.Stop()

	if _, ok := svc.Current(); ok {
		t.Error("expected no active order after stop")
	}
}
