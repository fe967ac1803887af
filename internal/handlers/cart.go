package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ngozi_back_end/internal/models"
)

// cartOwner résout le propriétaire du panier : l'utilisateur authentifié,
// sinon la session invitée passée en query.
func cartOwner(c *gin.Context) (string, bool) {
	if userID := c.GetString("user_id"); userID != "" {
		return userID, true
	}
	if sessionID := c.Query("session_id"); sessionID != "" {
		return sessionID, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "session_id requis pour un panier invité"})
	return "", false
}

func GetCart(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	cart, err := Carts.GetCart(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type addCartItemRequest struct {
	SessionID string          `json:"session_id"`
	Item      models.CartItem `json:"item"`
}

// AddCartItem ajoute un article au panier (quantités fusionnées).
func AddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	owner := c.GetString("user_id")
	if owner == "" {
		owner = req.SessionID
	}
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id requis pour un panier invité"})
		return
	}
	if req.Item.ProductID == "" || req.Item.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Article invalide"})
		return
	}

	cart, err := Carts.AddItem(c.Request.Context(), owner, req.Item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type removeCartItemRequest struct {
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
}

func RemoveCartItem(c *gin.Context) {
	var req removeCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide"})
		return
	}

	owner := c.GetString("user_id")
	if owner == "" {
		owner = req.SessionID
	}
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id requis pour un panier invité"})
		return
	}
	if req.ProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id requis"})
		return
	}

	cart, err := Carts.RemoveItem(c.Request.Context(), owner, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func ClearCart(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	if err := Carts.ClearCart(c.Request.Context(), owner); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé"})
}
