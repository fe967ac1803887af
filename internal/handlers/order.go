package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"ngozi_back_end/internal/models"
	"ngozi_back_end/internal/services/order"
	"ngozi_back_end/internal/utils"
)

type createOrderRequest struct {
	Items        []models.OrderItem `json:"items"`
	TotalPrice   float64            `json:"total_price"`
	UserID       string             `json:"user_id"`
	GuestEmail   string             `json:"guest_email"`
	GuestAddress string             `json:"guest_address"`
	GuestPhone   string             `json:"guest_phone"`
}

// CreateGuestOrder est l'endpoint public de commande invitée. Un user_id
// soumis ici est rejeté : le chemin authentifié passe par /orders/secure.
func CreateGuestOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	if req.UserID != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id interdit sur le checkout invité, utilisez /api/orders/secure"})
		return
	}

	created, err := Orders.CreateGuestOrder(c.Request.Context(), req.Items, req.TotalPrice, order.GuestInfo{
		Email:   req.GuestEmail,
		Address: req.GuestAddress,
		Phone:   req.GuestPhone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// CreateSecureOrder crée une commande pour l'utilisateur du token JWT.
// L'identité vient toujours des claims, jamais du corps de la requête.
func CreateSecureOrder(c *gin.Context) {
	userID := c.GetString("user_id")
	email, _ := c.Get("email")
	emailStr, _ := email.(string)

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	created, err := Orders.CreateAuthenticatedOrder(c.Request.Context(), userID, emailStr, req.Items, req.TotalPrice)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

type checkoutRequest struct {
	SessionID    string                 `json:"session_id"`
	Provider     models.PaymentProvider `json:"provider"`
	GuestEmail   string                 `json:"guest_email"`
	GuestAddress string                 `json:"guest_address"`
	GuestPhone   string                 `json:"guest_phone"`
}

// Checkout convertit le panier de l'utilisateur authentifié en commande
// et initie le paiement.
func Checkout(c *gin.Context) {
	userID := c.GetString("user_id")
	email, _ := c.Get("email")
	emailStr, _ := email.(string)

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	result, err := Orders.Checkout(c.Request.Context(), order.CheckoutInput{
		OwnerID:  userID,
		UserID:   userID,
		Email:    emailStr,
		Provider: req.Provider,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GuestCheckout convertit un panier de session invitée en commande.
// Le panier est identifié par session_id, les coordonnées par le corps.
func GuestCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}
	if req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id requis pour le checkout invité"})
		return
	}

	result, err := Orders.Checkout(c.Request.Context(), order.CheckoutInput{
		OwnerID:  req.SessionID,
		Provider: req.Provider,
		Guest: &order.GuestInfo{
			Email:   req.GuestEmail,
			Address: req.GuestAddress,
			Phone:   req.GuestPhone,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetAllOrders liste toutes les commandes (admin).
func GetAllOrders(c *gin.Context) {
	orders, err := Orders.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func GetOrderByID(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	found, err := Orders.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

type updateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatus fait avancer la machine à états d'une commande (admin).
func UpdateOrderStatus(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	updated, err := Orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.LogAction(c, utils.ActionOrderStatusUpdate, "order", id.String(), gin.H{"status": req.Status})
	c.JSON(http.StatusOK, updated)
}

// DeleteOrder supprime définitivement une commande (admin).
func DeleteOrder(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return
	}

	if err := Orders.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.LogAction(c, utils.ActionOrderDelete, "order", id.String(), nil)
	c.JSON(http.StatusOK, gin.H{"message": "Commande supprimée"})
}
