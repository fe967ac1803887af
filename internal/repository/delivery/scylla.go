package delivery

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gocql/gocql"

	"ngozi_back_end/internal/database"
	"ngozi_back_end/internal/models"
)

// ScyllaRepository persiste les livraisons. Deux tables de correspondance
// (par commande, par code de suivi) servent les recherches publiques ;
// l'historique append-only est embarqué en JSON dans la ligne principale,
// donc statut + historique partent toujours dans la même écriture.
type ScyllaRepository struct{}

func NewScyllaRepository() *ScyllaRepository {
	return &ScyllaRepository{}
}

func (r *ScyllaRepository) Insert(ctx context.Context, delivery *models.Delivery) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	historyJSON, err := json.Marshal(delivery.History)
	if err != nil {
		return err
	}

	if err := session.Query(`
		INSERT INTO deliveries (delivery_id, order_id, address, recipient_name,
			recipient_phone, courier, status, estimated_cost, tracking_code,
			last_location, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		delivery.DeliveryID, delivery.OrderID, delivery.Address, delivery.RecipientName,
		delivery.RecipientPhone, delivery.Courier, string(delivery.Status), delivery.EstimatedCost,
		delivery.TrackingCode, delivery.LastLocation, string(historyJSON),
		delivery.CreatedAt, delivery.UpdatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return err
	}

	if err := session.Query(`INSERT INTO deliveries_by_order (order_id, delivery_id) VALUES (?, ?)`,
		delivery.OrderID, delivery.DeliveryID).WithContext(ctx).Exec(); err != nil {
		return err
	}
	return session.Query(`INSERT INTO deliveries_by_tracking (tracking_code, delivery_id) VALUES (?, ?)`,
		delivery.TrackingCode, delivery.DeliveryID).WithContext(ctx).Exec()
}

func (r *ScyllaRepository) GetByID(ctx context.Context, id gocql.UUID) (*models.Delivery, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var (
		delivery    models.Delivery
		status      string
		historyJSON string
	)
	delivery.DeliveryID = id

	err = session.Query(`
		SELECT order_id, address, recipient_name, recipient_phone, courier, status,
			estimated_cost, tracking_code, last_location, history, created_at, updated_at
		FROM deliveries WHERE delivery_id = ?`, id).
		WithContext(ctx).
		Scan(&delivery.OrderID, &delivery.Address, &delivery.RecipientName,
			&delivery.RecipientPhone, &delivery.Courier, &status, &delivery.EstimatedCost,
			&delivery.TrackingCode, &delivery.LastLocation, &historyJSON,
			&delivery.CreatedAt, &delivery.UpdatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	delivery.Status = models.DeliveryStatus(status)
	if err := json.Unmarshal([]byte(historyJSON), &delivery.History); err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *ScyllaRepository) GetByOrderID(ctx context.Context, orderID gocql.UUID) (*models.Delivery, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var deliveryID gocql.UUID
	err = session.Query(`SELECT delivery_id FROM deliveries_by_order WHERE order_id = ?`, orderID).
		WithContext(ctx).Scan(&deliveryID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, deliveryID)
}

func (r *ScyllaRepository) GetByTrackingCode(ctx context.Context, code string) (*models.Delivery, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var deliveryID gocql.UUID
	err = session.Query(`SELECT delivery_id FROM deliveries_by_tracking WHERE tracking_code = ?`, code).
		WithContext(ctx).Scan(&deliveryID)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, deliveryID)
}

// Update écrit champs + statut + historique en une seule requête : le
// statut et l'historique ne peuvent jamais diverger.
func (r *ScyllaRepository) Update(ctx context.Context, delivery *models.Delivery) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	historyJSON, err := json.Marshal(delivery.History)
	if err != nil {
		return err
	}

	return session.Query(`
		UPDATE deliveries SET address = ?, recipient_name = ?, recipient_phone = ?,
			courier = ?, status = ?, estimated_cost = ?, last_location = ?,
			history = ?, updated_at = ?
		WHERE delivery_id = ?`,
		delivery.Address, delivery.RecipientName, delivery.RecipientPhone,
		delivery.Courier, string(delivery.Status), delivery.EstimatedCost,
		delivery.LastLocation, string(historyJSON), delivery.UpdatedAt,
		delivery.DeliveryID,
	).WithContext(ctx).Exec()
}
