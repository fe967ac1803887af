package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"ngozi_back_end/internal/gateway"
	"ngozi_back_end/internal/models"
	"ngozi_back_end/internal/notify"
)

// Service est le coordinateur de commandes : il est le seul point qui décide
// du chemin invité/authentifié, recalcule les totaux côté serveur et fait
// avancer le statut en réponse aux événements paiement/livraison.
type Service struct {
	orders      orderRepo
	payments    paymentRepo
	carts       cartStore
	catalog     catalog
	gateway     paymentGateway
	deliveries  deliveryCreator
	notifier    notify.Dispatcher
	callbackURL string
}

type orderRepo interface {
	Insert(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id gocql.UUID) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id gocql.UUID, status models.OrderStatus, updatedAt time.Time) error
	Delete(ctx context.Context, id gocql.UUID) error
}

type paymentRepo interface {
	Insert(ctx context.Context, payment *models.Payment) error
}

type cartStore interface {
	GetCart(ctx context.Context, ownerID string) (*models.Cart, error)
	ClearCart(ctx context.Context, ownerID string) error
}

type catalog interface {
	GetPriceByID(ctx context.Context, productID string) (name string, price float64, err error)
}

type paymentGateway interface {
	Initiate(ctx context.Context, in gateway.InitiateInput) (*gateway.InitiateResult, error)
}

type deliveryCreator interface {
	CreateForOrder(ctx context.Context, order *models.Order) error
}

func New(orders orderRepo, payments paymentRepo, carts cartStore, cat catalog,
	gw paymentGateway, deliveries deliveryCreator, notifier notify.Dispatcher,
	callbackURL string) *Service {
	return &Service{
		orders:      orders,
		payments:    payments,
		carts:       carts,
		catalog:     cat,
		gateway:     gw,
		deliveries:  deliveries,
		notifier:    notifier,
		callbackURL: callbackURL,
	}
}

// GuestInfo regroupe les coordonnées capturées pour un checkout invité.
type GuestInfo struct {
	Email   string `json:"guest_email"`
	Address string `json:"guest_address"`
	Phone   string `json:"guest_phone"`
}

// CreateGuestOrder enregistre une commande invitée. Le chemin invité ne porte
// jamais d'identité authentifiée : les deux chemins sont exclusifs par
// construction, pas par convention.
func (s *Service) CreateGuestOrder(ctx context.Context, items []models.OrderItem, total float64, guest GuestInfo) (*models.Order, error) {
	if guest.Email == "" {
		return nil, models.NewValidationError("guest_email", "e-mail requis pour le checkout invité")
	}
	if guest.Address == "" {
		return nil, models.NewValidationError("guest_address", "adresse requise pour le checkout invité")
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderID:      gocql.TimeUUID(),
		GuestEmail:   guest.Email,
		GuestAddress: guest.Address,
		GuestPhone:   guest.Phone,
		ContactEmail: guest.Email,
		Items:        items,
		TotalPrice:   recomputeTotal(items, total),
		Status:       models.OrderPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	log.Printf("✅ Commande invitée %s créée (%.2f KES)", order.OrderID, order.TotalPrice)
	s.notifier.OrderPlaced(*order)
	return order, nil
}

// CreateAuthenticatedOrder enregistre une commande pour un utilisateur
// identifié. Les champs invités sont forcés à vide, même s'ils ont été soumis.
func (s *Service) CreateAuthenticatedOrder(ctx context.Context, userID, email string, items []models.OrderItem, total float64) (*models.Order, error) {
	if userID == "" {
		return nil, models.ErrAuthRequired
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderID:      gocql.TimeUUID(),
		UserID:       userID,
		ContactEmail: email,
		Items:        items,
		TotalPrice:   recomputeTotal(items, total),
		Status:       models.OrderPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	log.Printf("✅ Commande %s créée pour l'utilisateur %s (%.2f KES)", order.OrderID, userID, order.TotalPrice)
	s.notifier.OrderPlaced(*order)
	return order, nil
}

type CheckoutInput struct {
	OwnerID  string
	UserID   string
	Email    string
	Provider models.PaymentProvider
	Guest    *GuestInfo
}

type CheckoutResult struct {
	Order      *models.Order   `json:"order"`
	Payment    *models.Payment `json:"payment"`
	PaymentURL string          `json:"payment_url"`
}

// Checkout convertit le panier courant en commande et initie le paiement.
// Invariant d'ordonnancement : le panier n'est vidé qu'une fois la commande
// ET le paiement durablement écrits, jamais avant. Un échec en cours de
// route laisse le panier intact et permet de réessayer sans double débit.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if !in.Provider.IsValid() {
		return nil, models.NewValidationError("provider", "fournisseur de paiement inconnu")
	}
	if in.UserID == "" && in.Guest == nil {
		return nil, models.ErrAuthRequired
	}

	// 1. Récupérer le panier
	cart, err := s.carts.GetCart(ctx, in.OwnerID)
	if err != nil || cart == nil || len(cart.Items) == 0 {
		return nil, models.ErrEmptyCart
	}

	// 2. Recalculer le total depuis le catalogue, jamais depuis le client
	items := make([]models.OrderItem, 0, len(cart.Items))
	var total float64
	for _, item := range cart.Items {
		if item.Quantity < 1 {
			return nil, models.NewValidationError("quantity", "quantité invalide pour "+item.ProductID)
		}
		name, price, err := s.catalog.GetPriceByID(ctx, item.ProductID)
		if err != nil {
			return nil, models.NewValidationError("product_id", "produit introuvable: "+item.ProductID)
		}
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
		total += price * float64(item.Quantity)
	}

	// 3. Créer la commande (invité ou authentifié, exclusif par construction)
	order := &models.Order{
		OrderID:    gocql.TimeUUID(),
		Items:      items,
		TotalPrice: total,
		Status:     models.OrderPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if in.UserID != "" {
		order.UserID = in.UserID
		order.ContactEmail = in.Email
	} else {
		if in.Guest.Email == "" {
			return nil, models.NewValidationError("guest_email", "e-mail requis pour le checkout invité")
		}
		if in.Guest.Address == "" {
			return nil, models.NewValidationError("guest_address", "adresse requise pour le checkout invité")
		}
		order.GuestEmail = in.Guest.Email
		order.GuestAddress = in.Guest.Address
		order.GuestPhone = in.Guest.Phone
		order.ContactEmail = in.Guest.Email
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	// 4. Initier le paiement, référence idempotente fraîche à chaque tentative
	reference := gateway.NewReference(order.OrderID)
	gwRes, err := s.gateway.Initiate(ctx, gateway.InitiateInput{
		Amount:      total,
		Currency:    "KES",
		Description: fmt.Sprintf("Commande Ngozi #%s", order.OrderID),
		Email:       order.ContactEmail,
		Phone:       order.GuestPhone,
		Reference:   reference,
		CallbackURL: s.callbackURL,
		Provider:    in.Provider,
	})
	if err != nil {
		// Aucune ligne Payment n'existe : la passerelle a échoué avant.
		log.Printf("❌ Échec initiation paiement pour la commande %s: %v", order.OrderID, err)
		return nil, err
	}

	payment := &models.Payment{
		PaymentID: gocql.TimeUUID(),
		OrderID:   order.OrderID,
		Provider:  in.Provider,
		Status:    models.PaymentPending,
		Reference: reference,
		Amount:    total,
		CreatedAt: time.Now(),
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		return nil, err
	}

	// 5. Vider le panier, seulement maintenant que commande + paiement
	// sont écrits. Un échec ici n'est pas fatal : le panier survit.
	if err := s.carts.ClearCart(ctx, in.OwnerID); err != nil {
		log.Printf("⚠️ Panier %s non vidé après checkout: %v", in.OwnerID, err)
	} else {
		log.Printf("🧹 Panier vidé pour %s", in.OwnerID)
	}

	log.Printf("💳 Checkout %s: commande %s, référence %s (%.2f KES)", in.Provider, order.OrderID, reference, total)
	s.notifier.OrderPlaced(*order)

	return &CheckoutResult{Order: order, Payment: payment, PaymentURL: gwRes.PaymentURL}, nil
}

// UpdateStatus fait avancer la machine à états. Réappliquer le statut
// courant est un no-op, pas une erreur.
func (s *Service) UpdateStatus(ctx context.Context, id gocql.UUID, newStatus models.OrderStatus) (*models.Order, error) {
	if !newStatus.IsValid() {
		return nil, models.NewValidationError("status", "statut de commande inconnu: "+string(newStatus))
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	if order.Status == newStatus {
		return order, nil
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return nil, &models.InvalidTransitionError{From: order.Status, To: newStatus}
	}

	old := order.Status
	order.Status = newStatus
	order.UpdatedAt = time.Now()
	if err := s.orders.UpdateStatus(ctx, id, newStatus, order.UpdatedAt); err != nil {
		return nil, err
	}

	log.Printf("✅ Commande %s: %s → %s", id, old, newStatus)
	s.notifier.OrderStatusChanged(*order, old)
	return order, nil
}

// ReconcilePayment applique le verdict d'un paiement sur la commande.
// Appelé uniquement par le traitement des webhooks ; tolérant aux relivraisons
// (commande déjà dans l'état cible → no-op loggué).
func (s *Service) ReconcilePayment(ctx context.Context, orderID gocql.UUID, payment models.Payment, status models.PaymentStatus) error {
	var target models.OrderStatus
	switch status {
	case models.PaymentConfirmed:
		target = models.OrderPaid
	case models.PaymentFailed:
		target = models.OrderFailed
	case models.PaymentRefunded:
		target = models.OrderRefunded
	default:
		return nil
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return models.ErrNotFound
	}

	if order.Status == target {
		log.Printf("🔁 Commande %s déjà en %s — réconciliation ignorée", orderID, target)
		return nil
	}
	if !order.Status.CanTransitionTo(target) {
		log.Printf("⚠️ Réconciliation %s → %s impossible pour la commande %s — ignorée", order.Status, target, orderID)
		return nil
	}

	old := order.Status
	order.Status = target
	order.UpdatedAt = time.Now()
	if err := s.orders.UpdateStatus(ctx, orderID, target, order.UpdatedAt); err != nil {
		return err
	}
	log.Printf("✅ Commande %s: %s → %s (paiement %s)", orderID, old, target, payment.Reference)

	if target == models.OrderPaid {
		s.notifier.PaymentConfirmed(*order, payment)

		// Commande invitée : l'adresse est connue, on amorce la livraison.
		if order.IsGuest() && s.deliveries != nil {
			if err := s.deliveries.CreateForOrder(ctx, order); err != nil &&
				!errors.Is(err, models.ErrDuplicateDelivery) {
				log.Printf("⚠️ Livraison non créée pour la commande %s: %v", orderID, err)
			}
		}
	} else {
		s.notifier.OrderStatusChanged(*order, old)
	}
	return nil
}

// FindAll liste les commandes (surface admin).
func (s *Service) FindAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.List(ctx)
}

func (s *Service) FindOne(ctx context.Context, id gocql.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return order, nil
}

// Remove est une suppression dure, réservée à l'admin. Le flux normal passe
// par une annulation pour préserver la trace d'audit.
func (s *Service) Remove(ctx context.Context, id gocql.UUID) error {
	if _, err := s.orders.GetByID(ctx, id); err != nil {
		return models.ErrNotFound
	}
	return s.orders.Delete(ctx, id)
}

func validateItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return models.NewValidationError("items", "une commande doit contenir au moins un article")
	}
	for _, item := range items {
		if item.ProductID == "" {
			return models.NewValidationError("items", "article sans identifiant produit")
		}
		if item.Quantity < 1 {
			return models.NewValidationError("items", "quantité invalide pour "+item.ProductID)
		}
	}
	return nil
}

// recomputeTotal recalcule le total depuis les lignes ; un total client
// divergent est signalé puis ignoré.
func recomputeTotal(items []models.OrderItem, submitted float64) float64 {
	var total float64
	for _, item := range items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	if submitted != 0 && submitted != total {
		log.Printf("⚠️ Total client %.2f ≠ total recalculé %.2f — total serveur retenu", submitted, total)
	}
	return total
}
