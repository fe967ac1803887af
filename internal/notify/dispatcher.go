package notify

import (
	"log"
	"sync"

	"ngozi_back_end/internal/models"
)

type EventKind string

const (
	EventOrderPlaced           EventKind = "order_placed"
	EventPaymentConfirmed      EventKind = "payment_confirmed"
	EventOrderStatusChanged    EventKind = "order_status_changed"
	EventDeliveryStatusChanged EventKind = "delivery_status_changed"
)

// Event transporte un instantané des entités au moment de la transition.
type Event struct {
	Kind      EventKind
	Order     models.Order
	Payment   *models.Payment
	Delivery  *models.Delivery
	OldStatus models.OrderStatus
}

// Dispatcher est le contrat "fire-and-forget" exposé au cœur métier :
// aucun appel ne bloque ni ne remonte d'erreur vers la transaction.
type Dispatcher interface {
	OrderPlaced(order models.Order)
	PaymentConfirmed(order models.Order, payment models.Payment)
	OrderStatusChanged(order models.Order, old models.OrderStatus)
	DeliveryStatusChanged(order models.Order, delivery models.Delivery)
}

// Mailer envoie un e-mail HTML. Implémenté par SMTPMailer (go-mail).
type Mailer interface {
	Send(to, subject, html string) error
}

// AsyncDispatcher empile les événements dans un canal borné consommé par
// un worker dédié. File pleine ou SMTP en panne : on loggue, on n'échoue
// jamais le flux commande/paiement/livraison appelant.
type AsyncDispatcher struct {
	events chan Event
	mailer Mailer
	wg     sync.WaitGroup
}

func NewAsyncDispatcher(mailer Mailer) *AsyncDispatcher {
	d := &AsyncDispatcher{
		events: make(chan Event, 64),
		mailer: mailer,
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

func (d *AsyncDispatcher) OrderPlaced(order models.Order) {
	d.enqueue(Event{Kind: EventOrderPlaced, Order: order})
}

func (d *AsyncDispatcher) PaymentConfirmed(order models.Order, payment models.Payment) {
	d.enqueue(Event{Kind: EventPaymentConfirmed, Order: order, Payment: &payment})
}

func (d *AsyncDispatcher) OrderStatusChanged(order models.Order, old models.OrderStatus) {
	d.enqueue(Event{Kind: EventOrderStatusChanged, Order: order, OldStatus: old})
}

func (d *AsyncDispatcher) DeliveryStatusChanged(order models.Order, delivery models.Delivery) {
	d.enqueue(Event{Kind: EventDeliveryStatusChanged, Order: order, Delivery: &delivery})
}

func (d *AsyncDispatcher) enqueue(ev Event) {
	select {
	case d.events <- ev:
	default:
		log.Printf("⚠️ File de notifications pleine — événement %s abandonné", ev.Kind)
	}
}

// Close vide la file puis arrête le worker. À appeler à l'extinction.
func (d *AsyncDispatcher) Close() {
	close(d.events)
	d.wg.Wait()
}

func (d *AsyncDispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.events {
		d.deliver(ev)
	}
}

func (d *AsyncDispatcher) deliver(ev Event) {
	to := ev.Order.ContactEmail
	if to == "" {
		log.Printf("⚠️ Pas d'e-mail destinataire pour la notification %s (commande %s)", ev.Kind, ev.Order.OrderID)
		return
	}

	var subject, html string
	switch ev.Kind {
	case EventOrderPlaced:
		subject = "🧾 Votre commande Ngozi a bien été enregistrée"
		html = generateOrderConfirmationHTML(ev.Order)
	case EventPaymentConfirmed:
		subject = "✅ Paiement confirmé - Ngozi"
		html = generatePaymentConfirmedHTML(ev.Order, ev.Payment)
	case EventOrderStatusChanged:
		subject = getStatusEmailSubject(ev.Order.Status)
		html = generateStatusEmailHTML(ev.Order)
	case EventDeliveryStatusChanged:
		subject = "📦 Mise à jour de votre livraison - Ngozi"
		html = generateDeliveryEmailHTML(ev.Order, ev.Delivery)
	default:
		log.Printf("⚠️ Événement de notification inconnu: %s", ev.Kind)
		return
	}

	if err := d.mailer.Send(to, subject, html); err != nil {
		log.Printf("❌ Erreur envoi notification %s à %s: %v", ev.Kind, to, err)
		return
	}
	log.Printf("📧 Notification %s envoyée à %s", ev.Kind, to)
}
