package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"ngozi_back_end/internal/models"
)

// NewReference fabrique la référence d'idempotence corrélant une initiation
// de paiement à son webhook. Jamais réutilisée entre deux tentatives.
func NewReference(orderID gocql.UUID) string {
	return fmt.Sprintf("REF-%d-%s", time.Now().Unix(), orderID)
}

// WebhookPayload est le callback IPN tel que reçu de la passerelle.
// Seule la référence fait foi : le callback n'est digne de confiance que
// dans la mesure où sa référence correspond à exactement un paiement connu.
type WebhookPayload struct {
	Reference       string `json:"reference"`
	OrderTrackingID string `json:"order_tracking_id"`
	Status          string `json:"status"`
	Reason          string `json:"reason"`
	PaymentMethod   string `json:"payment_method"`
}

// ParseWebhook décode le payload IPN et exige la présence de la référence.
func ParseWebhook(raw []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("payload IPN illisible: %w", err)
	}
	if strings.TrimSpace(p.Reference) == "" {
		return nil, models.ErrReferenceMissing
	}
	return &p, nil
}

// MapStatus traduit le statut passerelle vers notre enum canonique.
// Un statut inconnu reste "pending" : le callback sera simplement archivé.
func MapStatus(providerStatus string) models.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(providerStatus)) {
	case "COMPLETED", "PAID", "CONFIRMED":
		return models.PaymentConfirmed
	case "FAILED", "INVALID", "DECLINED":
		return models.PaymentFailed
	case "REVERSED", "REFUNDED":
		return models.PaymentRefunded
	default:
		return models.PaymentPending
	}
}

// CheckSignature valide la signature HMAC-SHA256 du corps brut.
// Sans secret configuré on accepte en le signalant (mode bring-up) ;
// avec un secret, une signature absente ou invalide est un rejet ferme.
func (c *Client) CheckSignature(raw []byte, signature string) error {
	if c.IPNSecret == "" {
		log.Println("⚠️ Pas de PESAPAL_WEBHOOK_SECRET — signature IPN non vérifiée")
		return nil
	}
	if signature == "" {
		return fmt.Errorf("signature IPN manquante")
	}

	mac := hmac.New(sha256.New, []byte(c.IPNSecret))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return fmt.Errorf("signature IPN invalide")
	}
	return nil
}
