package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gocql/gocql"

	"ngozi_back_end/internal/gateway"
	"ngozi_back_end/internal/models"
)

// --- Stubs ---

type stubOrderRepo struct {
	orders    map[gocql.UUID]*models.Order
	insertErr error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[gocql.UUID]*models.Order)}
}

func (r *stubOrderRepo) Insert(_ context.Context, order *models.Order) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	cp := *order
	r.orders[order.OrderID] = &cp
	return nil
}

func (r *stubOrderRepo) GetByID(_ context.Context, id gocql.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (r *stubOrderRepo) List(_ context.Context) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (r *stubOrderRepo) UpdateStatus(_ context.Context, id gocql.UUID, status models.OrderStatus, updatedAt time.Time) error {
	order, ok := r.orders[id]
	if !ok {
		return models.ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = updatedAt
	return nil
}

func (r *stubOrderRepo) Delete(_ context.Context, id gocql.UUID) error {
	delete(r.orders, id)
	return nil
}

type stubPaymentRepo struct {
	inserted []models.Payment
}

func (r *stubPaymentRepo) Insert(_ context.Context, payment *models.Payment) error {
	r.inserted = append(r.inserted, *payment)
	return nil
}

type stubCartStore struct {
	items    []models.CartItem
	clearErr error
	cleared  bool
}

func (s *stubCartStore) GetCart(_ context.Context, ownerID string) (*models.Cart, error) {
	return &models.Cart{OwnerID: ownerID, Items: s.items}, nil
}

func (s *stubCartStore) ClearCart(_ context.Context, _ string) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = true
	s.items = nil
	return nil
}

type stubCatalog struct {
	prices map[string]float64
}

func (c *stubCatalog) GetPriceByID(_ context.Context, productID string) (string, float64, error) {
	price, ok := c.prices[productID]
	if !ok {
		return "", 0, models.ErrNotFound
	}
	return "Produit " + productID, price, nil
}

type stubGateway struct {
	fail  bool
	calls int
}

func (g *stubGateway) Initiate(_ context.Context, in gateway.InitiateInput) (*gateway.InitiateResult, error) {
	g.calls++
	if g.fail {
		return nil, &gateway.OrderError{Err: errors.New("passerelle indisponible")}
	}
	return &gateway.InitiateResult{PaymentURL: "https://pay.example/" + in.Reference, TrackingID: "trk-1"}, nil
}

type stubDeliveryCreator struct {
	created []gocql.UUID
	err     error
}

func (d *stubDeliveryCreator) CreateForOrder(_ context.Context, order *models.Order) error {
	if d.err != nil {
		return d.err
	}
	d.created = append(d.created, order.OrderID)
	return nil
}

type stubNotifier struct {
	placed        int
	confirmed     int
	statusChanged int
	delivery      int
}

func (n *stubNotifier) OrderPlaced(models.Order)                            { n.placed++ }
func (n *stubNotifier) PaymentConfirmed(models.Order, models.Payment)       { n.confirmed++ }
func (n *stubNotifier) OrderStatusChanged(models.Order, models.OrderStatus) { n.statusChanged++ }
func (n *stubNotifier) DeliveryStatusChanged(models.Order, models.Delivery) { n.delivery++ }

type fixture struct {
	svc        *Service
	orders     *stubOrderRepo
	payments   *stubPaymentRepo
	carts      *stubCartStore
	gateway    *stubGateway
	deliveries *stubDeliveryCreator
	notifier   *stubNotifier
}

func newFixture() *fixture {
	f := &fixture{
		orders:     newStubOrderRepo(),
		payments:   &stubPaymentRepo{},
		carts:      &stubCartStore{},
		gateway:    &stubGateway{},
		deliveries: &stubDeliveryCreator{},
		notifier:   &stubNotifier{},
	}
	catalog := &stubCatalog{prices: map[string]float64{"p1": 500, "p2": 1200}}
	f.svc = New(f.orders, f.payments, f.carts, catalog, f.gateway, f.deliveries, f.notifier,
		"http://localhost:8080/api/payment/webhook")
	return f
}

func validItems() []models.OrderItem {
	return []models.OrderItem{{ProductID: "p1", Name: "Sacoche", Quantity: 2, UnitPrice: 500}}
}

// --- Création de commande ---

func TestCreateGuestOrderRequiresEmail(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateGuestOrder(context.Background(), validItems(), 1000, GuestInfo{Address: "Moi Avenue, Nairobi"})

	var vErr *models.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "guest_email" {
		t.Fatalf("attendu ValidationError sur guest_email, obtenu %v", err)
	}
}

func TestCreateGuestOrderRequiresAddress(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateGuestOrder(context.Background(), validItems(), 1000, GuestInfo{Email: "client@example.com"})

	var vErr *models.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "guest_address" {
		t.Fatalf("attendu ValidationError sur guest_address, obtenu %v", err)
	}
}

func TestCreateGuestOrderRecomputesTotal(t *testing.T) {
	f := newFixture()
	// Total client mensonger : le serveur recalcule depuis les lignes.
	order, err := f.svc.CreateGuestOrder(context.Background(), validItems(), 1,
		GuestInfo{Email: "client@example.com", Address: "Moi Avenue, Nairobi"})
	if err != nil {
		t.Fatal(err)
	}
	if order.TotalPrice != 1000 {
		t.Errorf("total attendu 1000, obtenu %.2f", order.TotalPrice)
	}
	if order.ContactEmail != "client@example.com" {
		t.Errorf("contact_email attendu client@example.com, obtenu %s", order.ContactEmail)
	}
	if f.notifier.placed != 1 {
		t.Error("notification de commande attendue")
	}
}

func TestCreateAuthenticatedOrderRejectsAnonymous(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateAuthenticatedOrder(context.Background(), "", "x@y.z", validItems(), 1000)
	if !errors.Is(err, models.ErrAuthRequired) {
		t.Fatalf("attendu ErrAuthRequired, obtenu %v", err)
	}
}

func TestCreateAuthenticatedOrderHasNoGuestFields(t *testing.T) {
	f := newFixture()
	order, err := f.svc.CreateAuthenticatedOrder(context.Background(), "user-1", "user@example.com", validItems(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if order.GuestEmail != "" || order.GuestAddress != "" || order.GuestPhone != "" {
		t.Error("une commande authentifiée ne doit porter aucun champ invité")
	}
	if order.IsGuest() {
		t.Error("la commande devrait être rattachée à l'utilisateur")
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateAuthenticatedOrder(context.Background(), "user-1", "u@e.x", nil, 0)

	var vErr *models.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "items" {
		t.Fatalf("attendu ValidationError sur items, obtenu %v", err)
	}
}

// --- Checkout ---

func TestCheckoutUsesCatalogPrices(t *testing.T) {
	f := newFixture()
	// Prix client à 1 KES : seuls les prix catalogue comptent.
	f.carts.items = []models.CartItem{{ProductID: "p1", Price: 1, Quantity: 2}}

	result, err := f.svc.Checkout(context.Background(), CheckoutInput{
		OwnerID: "user-1", UserID: "user-1", Email: "user@example.com", Provider: models.ProviderCard,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Order.TotalPrice != 1000 {
		t.Errorf("total attendu 1000 (2 × 500 catalogue), obtenu %.2f", result.Order.TotalPrice)
	}
	if result.Payment.Amount != 1000 {
		t.Errorf("montant du paiement attendu 1000, obtenu %.2f", result.Payment.Amount)
	}
	if result.PaymentURL == "" {
		t.Error("URL de paiement attendue")
	}
	if !f.carts.cleared {
		t.Error("le panier doit être vidé après un checkout réussi")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		OwnerID: "user-1", UserID: "user-1", Provider: models.ProviderCard,
	})
	if !errors.Is(err, models.ErrEmptyCart) {
		t.Fatalf("attendu ErrEmptyCart, obtenu %v", err)
	}
}

func TestCheckoutGatewayFailureLeavesNoPayment(t *testing.T) {
	f := newFixture()
	f.carts.items = []models.CartItem{{ProductID: "p1", Quantity: 1}}
	f.gateway.fail = true

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		OwnerID: "user-1", UserID: "user-1", Provider: models.ProviderCard,
	})

	var gwErr *gateway.OrderError
	if !errors.As(err, &gwErr) {
		t.Fatalf("attendu OrderError, obtenu %v", err)
	}
	if len(f.payments.inserted) != 0 {
		t.Error("aucune ligne Payment ne doit exister quand la passerelle échoue")
	}
	if f.carts.cleared {
		t.Error("le panier doit survivre à un échec passerelle")
	}
}

func TestCheckoutCartClearFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.carts.items = []models.CartItem{{ProductID: "p2", Quantity: 1}}
	f.carts.clearErr = errors.New("redis down")

	result, err := f.svc.Checkout(context.Background(), CheckoutInput{
		OwnerID: "user-1", UserID: "user-1", Provider: models.ProviderMobileMoney,
	})
	if err != nil {
		t.Fatalf("l'échec du vidage de panier ne doit pas faire échouer le checkout: %v", err)
	}
	if result.Order == nil || result.Payment == nil {
		t.Fatal("commande et paiement doivent exister malgré le panier non vidé")
	}
	if len(f.payments.inserted) != 1 {
		t.Errorf("exactement une ligne Payment attendue, obtenu %d", len(f.payments.inserted))
	}
}

func TestCheckoutGuestRequiresContactInfo(t *testing.T) {
	f := newFixture()
	f.carts.items = []models.CartItem{{ProductID: "p1", Quantity: 1}}

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		OwnerID: "sess-42", Provider: models.ProviderCard, Guest: &GuestInfo{Email: "g@e.x"},
	})

	var vErr *models.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "guest_address" {
		t.Fatalf("attendu ValidationError sur guest_address, obtenu %v", err)
	}
}

func TestCheckoutRejectsUnknownProvider(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		OwnerID: "user-1", UserID: "user-1", Provider: models.PaymentProvider("paypal"),
	})

	var vErr *models.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "provider" {
		t.Fatalf("attendu ValidationError sur provider, obtenu %v", err)
	}
}

// --- Machine à états ---

func seedOrder(f *fixture, status models.OrderStatus) gocql.UUID {
	id := gocql.TimeUUID()
	f.orders.orders[id] = &models.Order{
		OrderID:      id,
		GuestEmail:   "client@example.com",
		GuestAddress: "Moi Avenue, Nairobi",
		ContactEmail: "client@example.com",
		Status:       status,
		TotalPrice:   1000,
	}
	return id
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, models.OrderPaid)

	order, err := f.svc.UpdateStatus(context.Background(), id, models.OrderPaid)
	if err != nil {
		t.Fatalf("réappliquer le statut courant doit réussir: %v", err)
	}
	if order.Status != models.OrderPaid {
		t.Errorf("statut attendu paid, obtenu %s", order.Status)
	}
	if f.notifier.statusChanged != 0 {
		t.Error("aucune notification pour un no-op")
	}
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, models.OrderDelivered)

	_, err := f.svc.UpdateStatus(context.Background(), id, models.OrderPending)

	var tErr *models.InvalidTransitionError
	if !errors.As(err, &tErr) {
		t.Fatalf("attendu InvalidTransitionError, obtenu %v", err)
	}
	if f.orders.orders[id].Status != models.OrderDelivered {
		t.Error("le statut ne doit pas changer après une transition refusée")
	}
}

func TestUpdateStatusValidTransitionNotifies(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, models.OrderPaid)

	order, err := f.svc.UpdateStatus(context.Background(), id, models.OrderShipped)
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != models.OrderShipped {
		t.Errorf("statut attendu shipped, obtenu %s", order.Status)
	}
	if f.notifier.statusChanged != 1 {
		t.Error("notification de changement de statut attendue")
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, models.OrderPending)

	_, err := f.svc.UpdateStatus(context.Background(), id, models.OrderStatus("archived"))

	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("attendu ValidationError, obtenu %v", err)
	}
}

// --- Réconciliation paiement ---

func TestReconcilePaymentConfirmedMovesToPaid(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, models.OrderPending)
	payment := models.Payment{Reference: "REF-1", OrderID: id}

	if err := f.svc.ReconcilePayment(context.Background(), id, payment, models.PaymentConfirmed); err != nil {
		t.Fatal(err)
	}
	if f.orders.orders[id].Status != models.OrderPaid {
		t.Errorf("statut attendu paid, obtenu %s", f.orders.orders[id].Status)
	}
	if f.notifier.confirmed != 1 {
		t.Error("notification de paiement confirmé attendue")
	}
	// Commande invitée : la livraison est amorcée automatiquement.
	if len(f.deliveries.created) != 1 || f.deliveries.created[0] != id {
		t.Error("création de livraison attendue pour une commande invitée payée")
	}
}

func TestReconcilePaymentNoDeliveryForAuthenticatedOrder(t *testing.T) {
	f := newFixture()
	id := gocql.TimeUUID()
	f.orders.orders[id] = &models.Order{OrderID: id, UserID: "user-1", Status: models.OrderPending}

	if err := f.svc.ReconcilePayment(context.Background(), id, models.Payment{OrderID: id}, models.PaymentConfirmed); err != nil {
		t.Fatal(err)
	}
	if len(f.deliveries.created) != 0 {
		t.Error("pas de livraison automatique sans adresse connue")
	}
}

func TestReconcilePaymentAlreadyPaidIsNoOp(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, models.OrderPaid)

	if err := f.svc.ReconcilePayment(context.Background(), id, models.Payment{OrderID: id}, models.PaymentConfirmed); err != nil {
		t.Fatalf("relivraison d'un verdict déjà appliqué = no-op, obtenu %v", err)
	}
	if f.notifier.confirmed != 0 {
		t.Error("pas de seconde notification sur une relivraison")
	}
}

func TestReconcilePaymentImpossibleTransitionIsTolerated(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, models.OrderCancelled)

	// Webhook en retard sur une commande annulée : on loggue, on n'échoue pas.
	if err := f.svc.ReconcilePayment(context.Background(), id, models.Payment{OrderID: id}, models.PaymentConfirmed); err != nil {
		t.Fatalf("verdict inapplicable = no-op, obtenu %v", err)
	}
	if f.orders.orders[id].Status != models.OrderCancelled {
		t.Error("une commande annulée ne doit pas être réécrite")
	}
}

func TestReconcilePaymentFailedMovesToFailed(t *testing.T) {
	f := newFixture()
	id := seedOrder(f, models.OrderPending)

	if err := f.svc.ReconcilePayment(context.Background(), id, models.Payment{OrderID: id}, models.PaymentFailed); err != nil {
		t.Fatal(err)
	}
	if f.orders.orders[id].Status != models.OrderFailed {
		t.Errorf("statut attendu failed, obtenu %s", f.orders.orders[id].Status)
	}
	if len(f.deliveries.created) != 0 {
		t.Error("pas de livraison pour un paiement échoué")
	}
}

func TestRemoveUnknownOrder(t *testing.T) {
	f := newFixture()
	if err := f.svc.Remove(context.Background(), gocql.TimeUUID()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("attendu ErrNotFound, obtenu %v", err)
	}
}
