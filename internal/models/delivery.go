package models

import (
	"time"

	"github.com/gocql/gocql"
)

type DeliveryStatus string

// Jeu de statuts canonique, partagé par la création ET la mise à jour.
const (
	DeliveryPending        DeliveryStatus = "pending"
	DeliveryProcessing     DeliveryStatus = "processing"
	DeliveryShipped        DeliveryStatus = "shipped"
	DeliveryInTransit      DeliveryStatus = "in_transit"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryCancelled      DeliveryStatus = "cancelled"
	DeliveryFailed         DeliveryStatus = "failed"
	DeliveryReturned       DeliveryStatus = "returned"
)

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryPending, DeliveryProcessing, DeliveryShipped, DeliveryInTransit,
		DeliveryOutForDelivery, DeliveryDelivered, DeliveryCancelled, DeliveryFailed,
		DeliveryReturned:
		return true
	}
	return false
}

// DeliveryEvent est une entrée de l'historique append-only d'une livraison.
type DeliveryEvent struct {
	Status    DeliveryStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Location  string         `json:"location,omitempty"`
}

type Delivery struct {
	DeliveryID     gocql.UUID      `json:"id"`
	OrderID        gocql.UUID      `json:"order_id"`
	Address        string          `json:"address"`
	RecipientName  string          `json:"recipient_name"`
	RecipientPhone string          `json:"recipient_phone"`
	Courier        string          `json:"courier"`
	Status         DeliveryStatus  `json:"status"`
	EstimatedCost  float64         `json:"estimated_cost"`
	TrackingCode   string          `json:"tracking_code"`
	LastLocation   string          `json:"last_location,omitempty"`
	History        []DeliveryEvent `json:"history"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
