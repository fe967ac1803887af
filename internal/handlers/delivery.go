package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	qrcode "github.com/skip2/go-qrcode"

	"ngozi_back_end/internal/services/delivery"
	"ngozi_back_end/internal/utils"
)

// CreateDelivery enregistre une livraison pour une commande (admin).
func CreateDelivery(c *gin.Context) {
	var req delivery.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	created, err := Deliveries.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.LogAction(c, utils.ActionDeliveryCreate, "delivery", created.DeliveryID.String(), req)
	c.JSON(http.StatusCreated, created)
}

// UpdateDelivery applique un patch partiel (admin). L'historique est géré
// côté service, jamais soumis par le client.
func UpdateDelivery(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de livraison invalide"})
		return
	}

	var req delivery.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	updated, err := Deliveries.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.LogAction(c, utils.ActionDeliveryUpdate, "delivery", id.String(), req)
	c.JSON(http.StatusOK, updated)
}

// TrackDelivery est le suivi public par code de suivi.
func TrackDelivery(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code de suivi requis"})
		return
	}

	found, err := Deliveries.FindByTrackingCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// TrackingQRCode génère un QR code PNG pointant vers la page de suivi.
func TrackingQRCode(c *gin.Context) {
	code := c.Param("code")

	found, err := Deliveries.FindByTrackingCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	url := "https://ngozi.co.ke/suivi/" + found.TrackingCode
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération QR code"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// GetDeliveryByOrder retourne la livraison d'une commande donnée.
func GetDeliveryByOrder(c *gin.Context) {
	orderID, err := gocql.ParseUUID(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	found, err := Deliveries.FindByOrderID(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}
