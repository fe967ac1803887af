package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gocql/gocql"

	"ngozi_back_end/internal/database"
	"ngozi_back_end/internal/models"
)

// ScyllaRepository persiste les commandes dans le keyspace orders.
// Les lignes de commande sont embarquées en JSON dans la ligne (la commande
// possède exclusivement ses articles, aucun cycle de vie indépendant).
type ScyllaRepository struct{}

func NewScyllaRepository() *ScyllaRepository {
	return &ScyllaRepository{}
}

func (r *ScyllaRepository) Insert(ctx context.Context, order *models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	return session.Query(`
		INSERT INTO orders (order_id, user_id, guest_email, guest_address, guest_phone,
			contact_email, items, total_price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderID, order.UserID, order.GuestEmail, order.GuestAddress, order.GuestPhone,
		order.ContactEmail, string(itemsJSON), order.TotalPrice, string(order.Status),
		order.CreatedAt, order.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (r *ScyllaRepository) GetByID(ctx context.Context, id gocql.UUID) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var (
		order     models.Order
		itemsJSON string
		status    string
	)
	order.OrderID = id

	err = session.Query(`
		SELECT user_id, guest_email, guest_address, guest_phone, contact_email,
			items, total_price, status, created_at, updated_at
		FROM orders WHERE order_id = ?`, id).
		WithContext(ctx).
		Scan(&order.UserID, &order.GuestEmail, &order.GuestAddress, &order.GuestPhone,
			&order.ContactEmail, &itemsJSON, &order.TotalPrice, &status,
			&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	order.Status = models.OrderStatus(status)
	if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *ScyllaRepository) List(ctx context.Context) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`
		SELECT order_id, user_id, guest_email, guest_address, guest_phone, contact_email,
			items, total_price, status, created_at, updated_at
		FROM orders`).WithContext(ctx).Iter()

	var orders []models.Order
	var (
		order     models.Order
		itemsJSON string
		status    string
	)
	for iter.Scan(&order.OrderID, &order.UserID, &order.GuestEmail, &order.GuestAddress,
		&order.GuestPhone, &order.ContactEmail, &itemsJSON, &order.TotalPrice, &status,
		&order.CreatedAt, &order.UpdatedAt) {
		order.Status = models.OrderStatus(status)
		if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
			continue
		}
		orders = append(orders, order)
		order = models.Order{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *ScyllaRepository) UpdateStatus(ctx context.Context, id gocql.UUID, status models.OrderStatus, updatedAt time.Time) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?`,
		string(status), updatedAt, id).WithContext(ctx).Exec()
}

func (r *ScyllaRepository) Delete(ctx context.Context, id gocql.UUID) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`DELETE FROM orders WHERE order_id = ?`, id).WithContext(ctx).Exec()
}
