package payment

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"

	"ngozi_back_end/internal/database"
	"ngozi_back_end/internal/models"
)

// ScyllaRepository persiste les paiements. La référence d'idempotence est la
// clé de jointure des webhooks : elle est indexée par une table dédiée
// payments_by_reference (double écriture, même motif que users_by_email).
type ScyllaRepository struct{}

func NewScyllaRepository() *ScyllaRepository {
	return &ScyllaRepository{}
}

func (r *ScyllaRepository) Insert(ctx context.Context, payment *models.Payment) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	if err := session.Query(`
		INSERT INTO payments (payment_id, order_id, provider, status, reference,
			amount, paid_at, failure_reason, raw_callback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.PaymentID, payment.OrderID, string(payment.Provider), string(payment.Status),
		payment.Reference, payment.Amount, payment.PaidAt, payment.FailureReason,
		payment.RawCallback, payment.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return err
	}

	return session.Query(`INSERT INTO payments_by_reference (reference, payment_id) VALUES (?, ?)`,
		payment.Reference, payment.PaymentID).WithContext(ctx).Exec()
}

func (r *ScyllaRepository) GetByID(ctx context.Context, id gocql.UUID) (*models.Payment, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var (
		payment  models.Payment
		provider string
		status   string
		paidAt   time.Time
	)
	payment.PaymentID = id

	err = session.Query(`
		SELECT order_id, provider, status, reference, amount, paid_at,
			failure_reason, raw_callback, created_at
		FROM payments WHERE payment_id = ?`, id).
		WithContext(ctx).
		Scan(&payment.OrderID, &provider, &status, &payment.Reference, &payment.Amount,
			&paidAt, &payment.FailureReason, &payment.RawCallback, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	payment.Provider = models.PaymentProvider(provider)
	payment.Status = models.PaymentStatus(status)
	if !paidAt.IsZero() {
		payment.PaidAt = &paidAt
	}
	return &payment, nil
}

func (r *ScyllaRepository) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var paymentID gocql.UUID
	err = session.Query(`SELECT payment_id FROM payments_by_reference WHERE reference = ?`, reference).
		WithContext(ctx).Scan(&paymentID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return r.GetByID(ctx, paymentID)
}

func (r *ScyllaRepository) List(ctx context.Context) ([]models.Payment, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`
		SELECT payment_id, order_id, provider, status, reference, amount, paid_at,
			failure_reason, raw_callback, created_at
		FROM payments`).WithContext(ctx).Iter()

	var payments []models.Payment
	var (
		payment  models.Payment
		provider string
		status   string
		paidAt   time.Time
	)
	for iter.Scan(&payment.PaymentID, &payment.OrderID, &provider, &status, &payment.Reference,
		&payment.Amount, &paidAt, &payment.FailureReason, &payment.RawCallback, &payment.CreatedAt) {
		payment.Provider = models.PaymentProvider(provider)
		payment.Status = models.PaymentStatus(status)
		if !paidAt.IsZero() {
			t := paidAt
			payment.PaidAt = &t
		}
		payments = append(payments, payment)
		payment = models.Payment{}
		paidAt = time.Time{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *ScyllaRepository) Update(ctx context.Context, payment *models.Payment) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`
		UPDATE payments SET status = ?, paid_at = ?, failure_reason = ?, raw_callback = ?
		WHERE payment_id = ?`,
		string(payment.Status), payment.PaidAt, payment.FailureReason,
		payment.RawCallback, payment.PaymentID,
	).WithContext(ctx).Exec()
}
