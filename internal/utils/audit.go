package utils

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"ngozi_back_end/internal/database"
)

// Actions d'audit prédéfinies
const (
	ActionOrderStatusUpdate = "order.status_update"
	ActionOrderDelete       = "order.delete"
	ActionDeliveryCreate    = "delivery.create"
	ActionDeliveryUpdate    = "delivery.update"
	ActionPaymentInitiate   = "payment.initiate"
)

// LogAction enregistre une mutation admin dans les logs d'audit.
// Écriture asynchrone : l'audit ne ralentit jamais la requête.
func LogAction(c *gin.Context, action, resource, resourceID string, newValue interface{}) {
	userID := c.GetString("user_id")
	email, _ := c.Get("email")
	emailStr, _ := email.(string)
	ip := c.ClientIP()
	userAgent := c.GetHeader("User-Agent")

	go func() {
		if err := writeAuditLog(userID, emailStr, action, resource, resourceID, newValue, ip, userAgent); err != nil {
			log.Printf("❌ Erreur enregistrement log audit: %v", err)
		}
	}()
}

func writeAuditLog(userID, userEmail, action, resource, resourceID string, newValue interface{}, ip, userAgent string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	var newValueStr string
	if newValue != nil {
		if data, err := json.Marshal(newValue); err == nil {
			newValueStr = string(data)
		}
	}

	return session.Query(`
		INSERT INTO audit_logs (
			id, user_id, user_email, action, resource, resource_id,
			new_value, ip_address, user_agent, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gocql.TimeUUID(), userID, userEmail, action, resource, resourceID,
		newValueStr, ip, userAgent, time.Now(),
	).Exec()
}
