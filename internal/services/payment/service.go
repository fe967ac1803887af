package payment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"ngozi_back_end/internal/gateway"
	"ngozi_back_end/internal/models"
	"ngozi_back_end/internal/utils"
)

// Service porte l'initiation des paiements (et leurs nouvelles tentatives)
// ainsi que la réconciliation des webhooks IPN. Le traitement webhook est
// sérialisé par référence : deux livraisons concurrentes du même callback
// ne peuvent ni doubler une transition ni se marcher dessus.
type Service struct {
	payments    paymentRepo
	orders      orderGetter
	gateway     gatewayClient
	reconciler  reconciler
	locks       *utils.KeyedMutex
	callbackURL string
}

type paymentRepo interface {
	Insert(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id gocql.UUID) (*models.Payment, error)
	GetByReference(ctx context.Context, reference string) (*models.Payment, error)
	List(ctx context.Context) ([]models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
}

type orderGetter interface {
	GetByID(ctx context.Context, id gocql.UUID) (*models.Order, error)
}

type gatewayClient interface {
	Initiate(ctx context.Context, in gateway.InitiateInput) (*gateway.InitiateResult, error)
	CheckSignature(raw []byte, signature string) error
}

type reconciler interface {
	ReconcilePayment(ctx context.Context, orderID gocql.UUID, payment models.Payment, status models.PaymentStatus) error
}

func New(payments paymentRepo, orders orderGetter, gw gatewayClient, rec reconciler, callbackURL string) *Service {
	return &Service{
		payments:    payments,
		orders:      orders,
		gateway:     gw,
		reconciler:  rec,
		locks:       utils.NewKeyedMutex(),
		callbackURL: callbackURL,
	}
}

type InitiateResult struct {
	Payment    *models.Payment `json:"payment"`
	PaymentURL string          `json:"payment_url"`
}

// Initiate (re)lance le paiement d'une commande existante. Chaque tentative
// crée une nouvelle ligne Payment avec une référence fraîche ; une référence
// déjà émise, même expirée, n'est jamais réutilisée.
func (s *Service) Initiate(ctx context.Context, orderID gocql.UUID, provider models.PaymentProvider) (*InitiateResult, error) {
	if !provider.IsValid() {
		return nil, models.NewValidationError("provider", "fournisseur de paiement inconnu")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, models.ErrNotFound
	}

	reference := gateway.NewReference(orderID)
	gwRes, err := s.gateway.Initiate(ctx, gateway.InitiateInput{
		Amount:      order.TotalPrice,
		Currency:    "KES",
		Description: fmt.Sprintf("Commande Ngozi #%s", orderID),
		Email:       order.ContactEmail,
		Phone:       order.GuestPhone,
		Reference:   reference,
		CallbackURL: s.callbackURL,
		Provider:    provider,
	})
	if err != nil {
		// La passerelle a refusé : aucune ligne Payment n'est créée.
		return nil, err
	}

	payment := &models.Payment{
		PaymentID: gocql.TimeUUID(),
		OrderID:   orderID,
		Provider:  provider,
		Status:    models.PaymentPending,
		Reference: reference,
		Amount:    order.TotalPrice,
		CreatedAt: time.Now(),
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		return nil, err
	}

	log.Printf("💳 Paiement %s initié pour la commande %s (référence %s)", payment.PaymentID, orderID, reference)
	return &InitiateResult{Payment: payment, PaymentURL: gwRes.PaymentURL}, nil
}

// HandleWebhook réconcilie un callback IPN avec son paiement.
//
// Stratégie face aux courses (le webhook peut précéder la réponse HTTP de
// l'initiation) : référence inconnue → erreur non-2xx, le fournisseur
// relivrera ; et le traitement est sérialisé par référence. Un paiement
// déjà terminal n'est jamais réécrit ; relivraison identique ou statut
// terminal contradictoire : no-op loggué.
func (s *Service) HandleWebhook(ctx context.Context, raw []byte, signature string) (*models.Payment, error) {
	if err := s.gateway.CheckSignature(raw, signature); err != nil {
		return nil, models.NewValidationError("signature", err.Error())
	}

	payload, err := gateway.ParseWebhook(raw)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(payload.Reference)
	defer unlock()

	payment, err := s.payments.GetByReference(ctx, payload.Reference)
	if err != nil {
		log.Printf("❌ Webhook rejeté: référence inconnue %s", payload.Reference)
		return nil, models.ErrPaymentNotFound
	}

	mapped := gateway.MapStatus(payload.Status)

	if payment.Status.IsTerminal() {
		if payment.Status == mapped {
			log.Printf("🔁 Webhook relivré pour %s (%s) — déjà traité, on ignore", payload.Reference, mapped)
		} else {
			log.Printf("⚠️ Webhook contradictoire pour %s: %s reçu alors que le paiement est %s — ignoré",
				payload.Reference, mapped, payment.Status)
		}
		return payment, nil
	}

	// Archiver systématiquement le payload brut pour audit.
	payment.RawCallback = string(raw)

	if mapped == models.PaymentPending {
		// Statut intermédiaire ou inconnu : on archive sans transition.
		if err := s.payments.Update(ctx, payment); err != nil {
			return nil, err
		}
		log.Printf("ℹ️ Webhook intermédiaire archivé pour %s (statut passerelle %q)", payload.Reference, payload.Status)
		return payment, nil
	}

	payment.Status = mapped
	switch mapped {
	case models.PaymentConfirmed:
		now := time.Now()
		payment.PaidAt = &now
	case models.PaymentFailed:
		payment.FailureReason = payload.Reason
	}

	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}
	log.Printf("✅ Paiement %s réconcilié: %s", payload.Reference, mapped)

	if err := s.reconciler.ReconcilePayment(ctx, payment.OrderID, *payment, mapped); err != nil {
		return nil, err
	}
	return payment, nil
}

// FindAll liste les paiements (surface admin).
func (s *Service) FindAll(ctx context.Context) ([]models.Payment, error) {
	return s.payments.List(ctx)
}

func (s *Service) FindOne(ctx context.Context, id gocql.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return payment, nil
}
