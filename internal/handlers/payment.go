package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"ngozi_back_end/internal/models"
	"ngozi_back_end/internal/utils"
)

const maxWebhookBody = 1 << 20 // 1 Mo

type initiatePaymentRequest struct {
	OrderID  string                 `json:"order_id"`
	Provider models.PaymentProvider `json:"provider"`
}

// InitiatePayment (re)lance le paiement d'une commande existante.
func InitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	orderID, err := gocql.ParseUUID(req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	result, err := Payments.Initiate(c.Request.Context(), orderID, req.Provider)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.LogAction(c, utils.ActionPaymentInitiate, "payment", result.Payment.PaymentID.String(),
		gin.H{"order_id": req.OrderID, "provider": req.Provider})
	c.JSON(http.StatusCreated, result)
}

// PaymentWebhook reçoit les callbacks IPN de la passerelle. Le corps brut
// est lu tel quel : la signature HMAC porte sur les octets exacts reçus.
func PaymentWebhook(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête illisible"})
		return
	}

	signature := c.GetHeader("X-Pesapal-Signature")

	payment, err := Payments.HandleWebhook(c.Request.Context(), raw, signature)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field == "signature" {
			log.Printf("❌ Webhook refusé: signature invalide")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Signature invalide"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Webhook traité",
		"reference": payment.Reference,
		"status":    payment.Status,
	})
}

// GetAllPayments liste tous les paiements (admin).
func GetAllPayments(c *gin.Context) {
	payments, err := Payments.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func GetPaymentByID(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de paiement invalide"})
		return
	}

	payment, err := Payments.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
