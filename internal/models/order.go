package models

import (
	"time"

	"github.com/gocql/gocql"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderPaid       OrderStatus = "paid"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderFailed     OrderStatus = "failed"
	OrderRefunded   OrderStatus = "refunded"
)

// orderTransitions définit les transitions autorisées du cycle de vie d'une commande.
// delivered/cancelled/refunded sont terminaux (seul delivered → refunded reste possible).
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderPaid, OrderFailed, OrderCancelled},
	OrderPaid:       {OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded},
	OrderProcessing: {OrderShipped, OrderDelivered, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled, OrderRefunded},
	OrderDelivered:  {OrderRefunded},
	OrderFailed:     {OrderCancelled},
	OrderCancelled:  {},
	OrderRefunded:   {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled || s == OrderRefunded
}

// CanTransitionTo vérifie que le passage s → next est une arête autorisée.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Order struct {
	OrderID      gocql.UUID  `json:"id"`
	UserID       string      `json:"user_id,omitempty"`
	GuestEmail   string      `json:"guest_email,omitempty"`
	GuestAddress string      `json:"guest_address,omitempty"`
	GuestPhone   string      `json:"guest_phone,omitempty"`
	ContactEmail string      `json:"contact_email,omitempty"`
	Items        []OrderItem `json:"items"`
	TotalPrice   float64     `json:"total_price"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsGuest indique si la commande a été passée sans compte client.
func (o *Order) IsGuest() bool {
	return o.UserID == ""
}
