package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gocql/gocql"

	"ngozi_back_end/internal/models"
)

// --- Stubs ---

type stubDeliveryRepo struct {
	byID       map[gocql.UUID]*models.Delivery
	byOrder    map[gocql.UUID]*models.Delivery
	byTracking map[string]*models.Delivery
	updates    int
}

func newStubDeliveryRepo() *stubDeliveryRepo {
	return &stubDeliveryRepo{
		byID:       make(map[gocql.UUID]*models.Delivery),
		byOrder:    make(map[gocql.UUID]*models.Delivery),
		byTracking: make(map[string]*models.Delivery),
	}
}

func (r *stubDeliveryRepo) add(d *models.Delivery) {
	r.byID[d.DeliveryID] = d
	r.byOrder[d.OrderID] = d
	r.byTracking[d.TrackingCode] = d
}

func (r *stubDeliveryRepo) Insert(_ context.Context, delivery *models.Delivery) error {
	cp := *delivery
	r.add(&cp)
	return nil
}

func (r *stubDeliveryRepo) GetByID(_ context.Context, id gocql.UUID) (*models.Delivery, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *d
	cp.History = append([]models.DeliveryEvent(nil), d.History...)
	return &cp, nil
}

func (r *stubDeliveryRepo) GetByOrderID(_ context.Context, orderID gocql.UUID) (*models.Delivery, error) {
	d, ok := r.byOrder[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *stubDeliveryRepo) GetByTrackingCode(_ context.Context, code string) (*models.Delivery, error) {
	d, ok := r.byTracking[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *stubDeliveryRepo) Update(_ context.Context, delivery *models.Delivery) error {
	r.updates++
	cp := *delivery
	cp.History = append([]models.DeliveryEvent(nil), delivery.History...)
	r.add(&cp)
	return nil
}

type stubOrderGetter struct {
	orders map[gocql.UUID]*models.Order
}

func (g *stubOrderGetter) GetByID(_ context.Context, id gocql.UUID) (*models.Order, error) {
	order, ok := g.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

type stubNotifier struct {
	deliveryEvents int
}

func (n *stubNotifier) OrderPlaced(models.Order)                            {}
func (n *stubNotifier) PaymentConfirmed(models.Order, models.Payment)       {}
func (n *stubNotifier) OrderStatusChanged(models.Order, models.OrderStatus) {}
func (n *stubNotifier) DeliveryStatusChanged(models.Order, models.Delivery) { n.deliveryEvents++ }

type fixture struct {
	svc      *Service
	repo     *stubDeliveryRepo
	orders   *stubOrderGetter
	notifier *stubNotifier
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newStubDeliveryRepo(),
		orders:   &stubOrderGetter{orders: make(map[gocql.UUID]*models.Order)},
		notifier: &stubNotifier{},
	}
	f.svc = New(f.repo, f.orders, f.notifier)
	return f
}

func (f *fixture) seedDelivery(status models.DeliveryStatus, location string) *models.Delivery {
	orderID := gocql.TimeUUID()
	f.orders.orders[orderID] = &models.Order{OrderID: orderID, ContactEmail: "c@e.x"}
	d, err := f.svc.Create(context.Background(), CreateInput{
		OrderID:      orderID,
		Address:      "Moi Avenue, Nairobi",
		Status:       status,
		LastLocation: location,
	})
	if err != nil {
		panic(err)
	}
	return d
}

// --- Création ---

func TestCreateDefaultsToPendingWithOneHistoryEntry(t *testing.T) {
	f := newFixture()
	orderID := gocql.TimeUUID()

	d, err := f.svc.Create(context.Background(), CreateInput{
		OrderID: orderID,
		Address: "Moi Avenue, Nairobi",
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != models.DeliveryPending {
		t.Errorf("statut par défaut attendu pending, obtenu %s", d.Status)
	}
	if len(d.History) != 1 || d.History[0].Status != models.DeliveryPending {
		t.Errorf("exactement une entrée d'historique attendue à la création, obtenu %d", len(d.History))
	}
	if !strings.HasPrefix(d.TrackingCode, "NGZ-") {
		t.Errorf("code de suivi attendu avec préfixe NGZ-, obtenu %s", d.TrackingCode)
	}
}

func TestCreateRejectsSecondDeliveryForSameOrder(t *testing.T) {
	f := newFixture()
	d := f.seedDelivery(models.DeliveryPending, "")

	_, err := f.svc.Create(context.Background(), CreateInput{
		OrderID: d.OrderID,
		Address: "Autre adresse",
	})
	if !errors.Is(err, models.ErrDuplicateDelivery) {
		t.Fatalf("attendu ErrDuplicateDelivery, obtenu %v", err)
	}
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), CreateInput{
		OrderID: gocql.TimeUUID(),
		Address: "Moi Avenue, Nairobi",
		Status:  models.DeliveryStatus("perdue"),
	})

	var vErr *models.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "status" {
		t.Fatalf("attendu ValidationError sur status, obtenu %v", err)
	}
}

func TestCreateForOrderUsesGuestAddress(t *testing.T) {
	f := newFixture()
	order := &models.Order{
		OrderID:      gocql.TimeUUID(),
		GuestEmail:   "client@example.com",
		GuestAddress: "Kimathi Street, Nairobi",
		GuestPhone:   "+254700000000",
	}

	if err := f.svc.CreateForOrder(context.Background(), order); err != nil {
		t.Fatal(err)
	}
	d := f.repo.byOrder[order.OrderID]
	if d == nil {
		t.Fatal("livraison attendue pour la commande")
	}
	if d.Address != order.GuestAddress || d.RecipientPhone != order.GuestPhone {
		t.Error("la livraison doit reprendre les coordonnées de la commande invitée")
	}
}

// --- Mise à jour ---

func TestUpdateWithoutChangeAppendsNothing(t *testing.T) {
	f := newFixture()
	d := f.seedDelivery(models.DeliveryShipped, "Entrepôt Nairobi")

	same := models.DeliveryShipped
	sameLoc := "Entrepôt Nairobi"
	updated, err := f.svc.Update(context.Background(), d.DeliveryID, UpdateInput{
		Status:       &same,
		LastLocation: &sameLoc,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.History) != 1 {
		t.Errorf("aucune entrée ne doit être ajoutée sans changement, historique: %d", len(updated.History))
	}
	if f.notifier.deliveryEvents != 0 {
		t.Error("pas de notification sans changement de statut")
	}
}

func TestUpdateStatusAppendsOneEntryAndNotifies(t *testing.T) {
	f := newFixture()
	d := f.seedDelivery(models.DeliveryPending, "")

	next := models.DeliveryInTransit
	updated, err := f.svc.Update(context.Background(), d.DeliveryID, UpdateInput{Status: &next})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.DeliveryInTransit {
		t.Errorf("statut attendu in_transit, obtenu %s", updated.Status)
	}
	if len(updated.History) != 2 {
		t.Errorf("une entrée d'historique attendue en plus, total %d", len(updated.History))
	}
	if f.notifier.deliveryEvents != 1 {
		t.Error("notification de changement de statut attendue")
	}
}

func TestUpdateStatusAndLocationTogetherAppendsSingleEntry(t *testing.T) {
	f := newFixture()
	d := f.seedDelivery(models.DeliveryShipped, "Entrepôt Nairobi")

	next := models.DeliveryInTransit
	loc := "Hub Mombasa Road"
	updated, err := f.svc.Update(context.Background(), d.DeliveryID, UpdateInput{
		Status:       &next,
		LastLocation: &loc,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.History) != 2 {
		t.Fatalf("une seule entrée pour un double changement, total %d", len(updated.History))
	}
	last := updated.History[len(updated.History)-1]
	if last.Status != next || last.Location != loc {
		t.Errorf("l'entrée doit refléter les deux changements: %+v", last)
	}
}

func TestUpdateLocationOnlyAppendsEntryWithoutNotification(t *testing.T) {
	f := newFixture()
	d := f.seedDelivery(models.DeliveryInTransit, "Hub Mombasa Road")

	loc := "Agence Westlands"
	updated, err := f.svc.Update(context.Background(), d.DeliveryID, UpdateInput{LastLocation: &loc})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.History) != 2 {
		t.Errorf("une entrée attendue pour un changement de position, total %d", len(updated.History))
	}
	if updated.History[1].Status != models.DeliveryInTransit {
		t.Error("l'entrée reprend le statut courant quand seul le lieu change")
	}
	if f.notifier.deliveryEvents != 0 {
		t.Error("un changement de position seul ne notifie pas")
	}
}

func TestUpdateUnknownDelivery(t *testing.T) {
	f := newFixture()
	next := models.DeliveryShipped
	_, err := f.svc.Update(context.Background(), gocql.TimeUUID(), UpdateInput{Status: &next})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("attendu ErrNotFound, obtenu %v", err)
	}
}

// --- Recherche ---

func TestFindByTrackingCode(t *testing.T) {
	f := newFixture()
	d := f.seedDelivery(models.DeliveryPending, "")

	found, err := f.svc.FindByTrackingCode(context.Background(), d.TrackingCode)
	if err != nil {
		t.Fatal(err)
	}
	if found.DeliveryID != d.DeliveryID {
		t.Error("mauvaise livraison retournée")
	}

	if _, err := f.svc.FindByTrackingCode(context.Background(), "NGZ-INCONNU"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("attendu ErrNotFound, obtenu %v", err)
	}
}

// --- Frais de port ---

func TestCalculateShippingCost(t *testing.T) {
	cases := []struct {
		name     string
		value    float64
		city     string
		country  string
		expected *float64
	}{
		{"offert au-delà de 700 USD", 750, "Paris", "France", ptr(0.0)},
		{"hors Kenya non desservi", 100, "Kampala", "Uganda", nil},
		{"Nairobi métropole", 100, "Nairobi", "Kenya", ptr(300.0)},
		{"Nairobi insensible à la casse", 100, "  NAIROBI ", " KENYA ", ptr(300.0)},
		{"reste du Kenya", 100, "Mombasa", "Kenya", ptr(500.0)},
		{"seuil exact non offert", 700, "Kisumu", "Kenya", ptr(500.0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateShippingCost(tc.value, tc.city, tc.country)
			switch {
			case tc.expected == nil && got != nil:
				t.Errorf("attendu nil (non desservi), obtenu %.2f", *got)
			case tc.expected != nil && got == nil:
				t.Errorf("attendu %.2f, obtenu nil", *tc.expected)
			case tc.expected != nil && got != nil && *tc.expected != *got:
				t.Errorf("attendu %.2f, obtenu %.2f", *tc.expected, *got)
			}
		})
	}
}

func ptr(f float64) *float64 { return &f }
