package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
)

var orderStatusSequence = []OrderStatus{
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// Next returns the status that follows s, or false when s is terminal or unknown.
func (s OrderStatus) Next() (OrderStatus, bool) {
	for i, st := range orderStatusSequence {
		if st == s && i+1 < len(orderStatusSequence) {
			return orderStatusSequence[i+1], true
		}
	}
	return "", false
}

// Rank orders statuses along the delivery sequence, starting at 1. Unknown
// statuses rank 0.
func (s OrderStatus) Rank() int {
	for i, st := range orderStatusSequence {
		if st == s {
			return i + 1
		}
	}
	return 0
}

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodMobile PaymentMethod = "mobile"
)

type ActiveOrder struct {
	ID            string
	Status        OrderStatus
	EstimatedTime string
	Subtotal      decimal.Decimal
	DeliveryFee   decimal.Decimal
	Total         decimal.Decimal
	Address       string
	Phone         string
	PaymentMethod PaymentMethod
	Items         []CartLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an entry of the profile's transaction history.
type Transaction struct {
	OrderID       string
	Date          time.Time
	Amount        decimal.Decimal
	Items         []string
	PaymentMethod PaymentMethod
	Status        TransactionStatus
}
