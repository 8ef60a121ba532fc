package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/port"
)

const (
	DefaultNotificationChannel = "clicknsip:notifications"
	DefaultOrderChannel        = "clicknsip:orders"
	orderStatusKeyPrefix       = "order-status:"
	orderStatusTTL             = 24 * time.Hour
	notifyTimeout              = time.Second
)

// publishOrderStatusScript stores and announces a status only when it moves
// the order forward, so a late publish can never roll the cache back.
var publishOrderStatusScript = redis.NewScript(`
local key = KEYS[1]
local rank = tonumber(ARGV[2])

local current = tonumber(redis.call('HGET', key, 'rank') or '0')
if current >= rank then
	return 0
end

redis.call('HSET', key, 'status', ARGV[1], 'rank', rank)
redis.call('EXPIRE', key, ARGV[3])
redis.call('PUBLISH', ARGV[4], ARGV[5])
return 1
`)

type NotificationEvent struct {
	SessionID string              `json:"session_id"`
	Note      domain.Notification `json:"notification"`
	SentAt    time.Time           `json:"sent_at"`
}

type OrderEvent struct {
	OrderID       string             `json:"order_id"`
	Status        domain.OrderStatus `json:"status"`
	EstimatedTime string             `json:"estimated_time"`
	Total         string             `json:"total"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// RedisAdapter fans notifications and order status changes out over pub/sub.
// The furthest status of each order is also kept in the hash order-status:<id>.
type RedisAdapter struct {
	client              *redis.Client
	notificationChannel string
	orderChannel        string
}

func NewRedisAdapter(client *redis.Client, notificationChannel, orderChannel string) *RedisAdapter {
	if notificationChannel == "" {
		notificationChannel = DefaultNotificationChannel
	}
	if orderChannel == "" {
		orderChannel = DefaultOrderChannel
	}
	return &RedisAdapter{
		client:              client,
		notificationChannel: notificationChannel,
		orderChannel:        orderChannel,
	}
}

func (r *RedisAdapter) PublishNotification(ctx context.Context, sessionID string, n domain.Notification) error {
	payload, err := json.Marshal(NotificationEvent{SessionID: sessionID, Note: n, SentAt: time.Now()})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return r.client.Publish(ctx, r.notificationChannel, payload).Err()
}

// PublishOrderStatus caches and publishes order's status. A status that does
// not advance past the cached one is dropped without error.
func (r *RedisAdapter) PublishOrderStatus(ctx context.Context, order domain.ActiveOrder) error {
	rank := order.Status.Rank()
	if rank == 0 {
		return fmt.Errorf("unknown order status %q", order.Status)
	}
	payload, err := json.Marshal(OrderEvent{
		OrderID:       order.ID,
		Status:        order.Status,
		EstimatedTime: order.EstimatedTime,
		Total:         order.Total.StringFixed(2),
		UpdatedAt:     order.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}

	key := orderStatusKeyPrefix + order.ID
	ttl := int(orderStatusTTL / time.Second)
	return publishOrderStatusScript.Run(ctx, r.client, []string{key},
		string(order.Status), rank, ttl, r.orderChannel, payload).Err()
}

// OrderStatus returns the last published status of an order, or false when unknown.
func (r *RedisAdapter) OrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, bool, error) {
	status, err := r.client.HGet(ctx, orderStatusKeyPrefix+orderID, "status").Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.OrderStatus(status), true, nil
}

// SessionNotifier returns a Notifier that publishes on behalf of sessionID.
func (r *RedisAdapter) SessionNotifier(sessionID string) port.Notifier {
	return sessionNotifier{adapter: r, sessionID: sessionID}
}

type sessionNotifier struct {
	adapter   *RedisAdapter
	sessionID string
}

func (n sessionNotifier) Notify(ctx context.Context, note domain.Notification) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.adapter.PublishNotification(ctx, n.sessionID, note); err != nil {
		log.Printf("redis notify %s failed: %v", n.sessionID, err)
	}
}
