package models

import (
	"time"

	"github.com/gocql/gocql"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// IsTerminal : un paiement terminal ne doit plus jamais être réconcilié.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentConfirmed || s == PaymentFailed || s == PaymentRefunded
}

type PaymentProvider string

const (
	ProviderCard        PaymentProvider = "card"
	ProviderMobileMoney PaymentProvider = "mobile_money"
	ProviderGateway     PaymentProvider = "gateway"
)

func (p PaymentProvider) IsValid() bool {
	switch p {
	case ProviderCard, ProviderMobileMoney, ProviderGateway:
		return true
	}
	return false
}

type Payment struct {
	PaymentID     gocql.UUID      `json:"id"`
	OrderID       gocql.UUID      `json:"order_id"`
	Provider      PaymentProvider `json:"provider"`
	Status        PaymentStatus   `json:"status"`
	Reference     string          `json:"reference"`
	Amount        float64         `json:"amount"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	RawCallback   string          `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}
