package delivery

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"ngozi_back_end/internal/models"
	"ngozi_back_end/internal/notify"
	"ngozi_back_end/internal/utils"
)

// Service possède les enregistrements de livraison (1:1 avec les commandes)
// et leur historique append-only. Les mises à jour concurrentes d'une même
// livraison sont sérialisées par id pour qu'aucune entrée d'historique ne
// soit perdue ni dupliquée.
type Service struct {
	deliveries deliveryRepo
	orders     orderGetter
	notifier   notify.Dispatcher
	locks      *utils.KeyedMutex
}

type deliveryRepo interface {
	Insert(ctx context.Context, delivery *models.Delivery) error
	GetByID(ctx context.Context, id gocql.UUID) (*models.Delivery, error)
	GetByOrderID(ctx context.Context, orderID gocql.UUID) (*models.Delivery, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.Delivery, error)
	Update(ctx context.Context, delivery *models.Delivery) error
}

type orderGetter interface {
	GetByID(ctx context.Context, id gocql.UUID) (*models.Order, error)
}

func New(deliveries deliveryRepo, orders orderGetter, notifier notify.Dispatcher) *Service {
	return &Service{
		deliveries: deliveries,
		orders:     orders,
		notifier:   notifier,
		locks:      utils.NewKeyedMutex(),
	}
}

type CreateInput struct {
	OrderID            gocql.UUID            `json:"order_id"`
	Address            string                `json:"address"`
	RecipientName      string                `json:"recipient_name"`
	RecipientPhone     string                `json:"recipient_phone"`
	Courier            string                `json:"courier"`
	Status             models.DeliveryStatus `json:"status"`
	EstimatedCost      *float64              `json:"estimated_cost"`
	LastLocation       string                `json:"last_location"`
	TrackingCode       string                `json:"tracking_code"`
	GoodsValueUSD      float64               `json:"goods_value_usd"`
	DestinationCity    string                `json:"destination_city"`
	DestinationCountry string                `json:"destination_country"`
}

// Create initialise une livraison pour une commande. L'historique démarre
// avec exactement une entrée reflétant le statut à la création.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Delivery, error) {
	var zero gocql.UUID
	if in.OrderID == zero {
		return nil, models.NewValidationError("order_id", "commande requise")
	}
	if in.Address == "" {
		return nil, models.NewValidationError("address", "adresse de livraison requise")
	}

	// 1:1 strict : une seule livraison par commande.
	if _, err := s.deliveries.GetByOrderID(ctx, in.OrderID); err == nil {
		return nil, models.ErrDuplicateDelivery
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.DeliveryPending
	}
	if !status.IsValid() {
		return nil, models.NewValidationError("status", "statut de livraison inconnu: "+string(status))
	}

	cost := 0.0
	if in.EstimatedCost != nil {
		cost = *in.EstimatedCost
	} else if calculated := CalculateShippingCost(in.GoodsValueUSD, in.DestinationCity, in.DestinationCountry); calculated != nil {
		cost = *calculated
	}

	tracking := in.TrackingCode
	if tracking == "" {
		tracking = newTrackingCode()
	}

	now := time.Now()
	delivery := &models.Delivery{
		DeliveryID:     gocql.TimeUUID(),
		OrderID:        in.OrderID,
		Address:        in.Address,
		RecipientName:  in.RecipientName,
		RecipientPhone: in.RecipientPhone,
		Courier:        in.Courier,
		Status:         status,
		EstimatedCost:  cost,
		TrackingCode:   tracking,
		LastLocation:   in.LastLocation,
		History: []models.DeliveryEvent{
			{Status: status, Timestamp: now, Location: in.LastLocation},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.deliveries.Insert(ctx, delivery); err != nil {
		return nil, err
	}

	log.Printf("📦 Livraison %s créée pour la commande %s (suivi %s)", delivery.DeliveryID, in.OrderID, tracking)
	return delivery, nil
}

// CreateForOrder amorce une livraison "pending" depuis les coordonnées d'une
// commande invitée, appelé par le coordinateur à la confirmation du paiement.
func (s *Service) CreateForOrder(ctx context.Context, order *models.Order) error {
	_, err := s.Create(ctx, CreateInput{
		OrderID:        order.OrderID,
		Address:        order.GuestAddress,
		RecipientPhone: order.GuestPhone,
	})
	return err
}

type UpdateInput struct {
	Address        *string                `json:"address"`
	RecipientName  *string                `json:"recipient_name"`
	RecipientPhone *string                `json:"recipient_phone"`
	Courier        *string                `json:"courier"`
	Status         *models.DeliveryStatus `json:"status"`
	EstimatedCost  *float64               `json:"estimated_cost"`
	LastLocation   *string                `json:"last_location"`
}

// Update applique un patch. Une entrée d'historique est ajoutée si et
// seulement si le statut OU la position change ; et si les deux changent
// dans le même appel, une seule entrée les reflète tous les deux.
// Champs, statut et historique partent dans une écriture unique.
func (s *Service) Update(ctx context.Context, id gocql.UUID, patch UpdateInput) (*models.Delivery, error) {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	delivery, err := s.deliveries.GetByID(ctx, id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, models.NewValidationError("status", "statut de livraison inconnu: "+string(*patch.Status))
	}

	effectiveStatus := delivery.Status
	if patch.Status != nil {
		effectiveStatus = *patch.Status
	}
	effectiveLocation := delivery.LastLocation
	if patch.LastLocation != nil {
		effectiveLocation = *patch.LastLocation
	}

	statusChanged := effectiveStatus != delivery.Status
	changed := statusChanged || effectiveLocation != delivery.LastLocation

	if patch.Address != nil {
		delivery.Address = *patch.Address
	}
	if patch.RecipientName != nil {
		delivery.RecipientName = *patch.RecipientName
	}
	if patch.RecipientPhone != nil {
		delivery.RecipientPhone = *patch.RecipientPhone
	}
	if patch.Courier != nil {
		delivery.Courier = *patch.Courier
	}
	if patch.EstimatedCost != nil {
		delivery.EstimatedCost = *patch.EstimatedCost
	}

	now := time.Now()
	if changed {
		delivery.History = append(delivery.History, models.DeliveryEvent{
			Status:    effectiveStatus,
			Timestamp: now,
			Location:  effectiveLocation,
		})
	}
	delivery.Status = effectiveStatus
	delivery.LastLocation = effectiveLocation
	delivery.UpdatedAt = now

	if err := s.deliveries.Update(ctx, delivery); err != nil {
		return nil, err
	}

	if statusChanged {
		log.Printf("📦 Livraison %s: statut → %s", id, effectiveStatus)
		if order, err := s.orders.GetByID(ctx, delivery.OrderID); err == nil {
			s.notifier.DeliveryStatusChanged(*order, *delivery)
		} else {
			log.Printf("⚠️ Commande %s introuvable pour la notification de livraison", delivery.OrderID)
		}
	}
	return delivery, nil
}

// FindByTrackingCode est la recherche publique de suivi.
func (s *Service) FindByTrackingCode(ctx context.Context, code string) (*models.Delivery, error) {
	delivery, err := s.deliveries.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return delivery, nil
}

func (s *Service) FindByOrderID(ctx context.Context, orderID gocql.UUID) (*models.Delivery, error) {
	delivery, err := s.deliveries.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return delivery, nil
}

// CalculateShippingCost applique la grille maison : offert au-delà de 700 USD
// de marchandise, livraison Kenya uniquement sinon (nil = destination non
// desservie), 300 KES sur le Grand Nairobi, 500 KES ailleurs au Kenya.
func CalculateShippingCost(goodsValueUSD float64, destinationCity, destinationCountry string) *float64 {
	free := 0.0
	if goodsValueUSD > 700 {
		return &free
	}
	if strings.ToLower(strings.TrimSpace(destinationCountry)) != "kenya" {
		return nil
	}
	nairobi := map[string]bool{
		"nairobi":              true,
		"nairobi metropolis":   true,
		"nairobi metropolitan": true,
	}
	cost := 500.0
	if nairobi[strings.ToLower(strings.TrimSpace(destinationCity))] {
		cost = 300.0
	}
	return &cost
}

func newTrackingCode() string {
	return "NGZ-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
