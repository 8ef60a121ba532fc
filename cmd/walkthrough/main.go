package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/click-n-sip/internal/adapter/notifier"
	"github.com/rl1809/click-n-sip/internal/adapter/storage"
	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/core/service"
	"github.com/rl1809/click-n-sip/internal/port"
)

const (
	totalShoppers  = 50
	underageEvery  = 5
	orderChannel   = "clicknsip:walkthrough:orders"
	notifyChannel  = "clicknsip:walkthrough:notifications"
	statusDeadline = 5 * time.Second
)

var statusOffsets = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}

func main() {
	redisAddr := flag.String("redis", "", "redis address; an in-process server is used when empty")
	flag.Parse()

	ctx := context.Background()

	catalog, err := service.LoadCatalogService(ctx, storage.NewStaticCatalog())
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	opts := service.SessionOptions{
		ProcessingDelay: 50 * time.Millisecond,
		StatusOffsets:   statusOffsets,
	}

	// Redis order events, in-process unless an address is given
	addr := *redisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			log.Fatalf("failed to start miniredis: %v", err)
		}
		defer mr.Close()
		addr = mr.Addr()
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	events := rdb.Subscribe(ctx, orderChannel)
	if _, err := events.Receive(ctx); err != nil {
		log.Fatalf("failed to subscribe: %v", err)
	}
	defer events.Close()
	messages := events.Channel(redis.WithChannelSize(totalShoppers * 4))

	redisAdapter := storage.NewRedisAdapter(rdb, notifyChannel, orderChannel)
	opts.OrderEvents = redisAdapter

	inboxes := notifier.NewInboxSet(notifier.DefaultInboxSize)
	registry := service.NewRegistry(catalog, func(sessionID string) port.Notifier {
		return inboxes.For(sessionID)
	}, opts)
	defer registry.Close()

	// Spawn concurrent shoppers
	var placed, denied, failed atomic.Int32
	var mu sync.Mutex
	orders := make(map[string]string)

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalShoppers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			sess := registry.Create()
			birth := time.Now().AddDate(-30, 0, 0)
			if n%underageEvery == 0 {
				birth = time.Now().AddDate(-16, 0, 0)
			}

			order, err := shop(ctx, sess, fmt.Sprintf("shopper-%d@example.com", n), birth)
			switch {
			case errors.Is(err, service.ErrAccessDenied):
				denied.Add(1)
			case err != nil:
				log.Printf("shopper %d: %v", n, err)
				failed.Add(1)
			default:
				placed.Add(1)
				mu.Lock()
				orders[sess.ID()] = order.ID
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	wantDenied := int32((totalShoppers + underageEvery - 1) / underageEvery)
	wantPlaced := int32(totalShoppers) - wantDenied

	fmt.Println("========== WALKTHROUGH RESULTS ==========")
	fmt.Printf("Shoppers:         %d\n", totalShoppers)
	fmt.Printf("Orders placed:    %d\n", placed.Load())
	fmt.Printf("Age denied:       %d\n", denied.Load())
	fmt.Printf("Failed:           %d\n", failed.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=========================================")

	if placed.Load() == wantPlaced && denied.Load() == wantDenied && failed.Load() == 0 {
		fmt.Printf("PASS: %d orders placed, %d shoppers turned away\n", wantPlaced, wantDenied)
	} else {
		fmt.Printf("FAIL: expected %d placed/%d denied, got %d/%d (%d failed)\n",
			wantPlaced, wantDenied, placed.Load(), denied.Load(), failed.Load())
	}

	// Every active order should reach delivered
	deadline := time.Now().Add(statusDeadline)
	delivered := 0
	for sessionID := range orders {
		sess, err := registry.Get(sessionID)
		if err != nil {
			continue
		}
		for time.Now().Before(deadline) {
			if o, ok := sess.ActiveOrder(); ok && o.Status == domain.OrderStatusDelivered {
				delivered++
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
	if delivered == len(orders) {
		fmt.Printf("PASS: %d orders delivered\n", delivered)
	} else {
		fmt.Printf("FAIL: expected %d delivered, got %d\n", len(orders), delivered)
	}

	checkEvents(ctx, messages, redisAdapter, len(orders)*4)
}

// shop runs one shopper from sign-in to a placed order of product 3 twice
// and product 1 once.
func shop(ctx context.Context, sess *service.SessionService, email string, birth time.Time) (domain.ActiveOrder, error) {
	if err := sess.Authenticate(ctx, email, "password"); err != nil {
		return domain.ActiveOrder{}, err
	}
	ok, err := sess.VerifyAge(ctx, birth)
	if err != nil {
		return domain.ActiveOrder{}, err
	}
	if !ok {
		return domain.ActiveOrder{}, service.ErrAccessDenied
	}

	for _, id := range []string{"3", "3", "1"} {
		if err := sess.AddToCart(ctx, id); err != nil {
			return domain.ActiveOrder{}, err
		}
	}
	if total := sess.CartTotal(); !total.Equal(decimal.RequireFromString("71.97")) {
		return domain.ActiveOrder{}, fmt.Errorf("cart total %s, want 71.97", total)
	}

	if err := sess.GoToCheckout(ctx); err != nil {
		return domain.ActiveOrder{}, err
	}
	return sess.PlaceOrder(ctx, service.CheckoutDetails{
		Address: "1 Vine Street",
		Phone:   "555-0100",
	})
}

func checkEvents(ctx context.Context, messages <-chan *redis.Message, adapter *storage.RedisAdapter, want int) {
	got := 0
	timeout := time.After(statusDeadline)
	var lastOrder string

loop:
	for got < want {
		select {
		case msg := <-messages:
			var ev storage.OrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err == nil {
				got++
				lastOrder = ev.OrderID
			}
		case <-timeout:
			break loop
		}
	}

	if got == want {
		fmt.Printf("PASS: %d order events published\n", got)
	} else {
		fmt.Printf("FAIL: expected %d order events, got %d\n", want, got)
	}

	if lastOrder == "" {
		return
	}
	status, found, err := adapter.OrderStatus(ctx, lastOrder)
	if err != nil || !found {
		fmt.Printf("FAIL: cached status for %s missing: %v\n", lastOrder, err)
		return
	}
	fmt.Printf("Cached status %s: %s\n", lastOrder, status)
}
