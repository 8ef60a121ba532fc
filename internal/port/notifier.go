package port

import (
	"context"

	"github.com/rl1809/click-n-sip/internal/core/domain"
)

type Notifier interface {
	// Notify delivers a user-facing message; delivery is best effort
	Notify(ctx context.Context, n domain.Notification)
}

type OrderEventPublisher interface {
	// PublishOrderStatus announces that an order moved to a new status
	PublishOrderStatus(ctx context.Context, order domain.ActiveOrder) error
}
