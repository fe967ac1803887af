package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ngozi_back_end/internal/gateway"
	"ngozi_back_end/internal/models"
	"ngozi_back_end/internal/repository/cart"
	"ngozi_back_end/internal/services/delivery"
	"ngozi_back_end/internal/services/order"
	"ngozi_back_end/internal/services/payment"
)

// Services injectés au démarrage par cmd/server.
var (
	Orders     *order.Service
	Payments   *payment.Service
	Deliveries *delivery.Service
	Carts      *cart.RedisStore
)

func Init(orders *order.Service, payments *payment.Service, deliveries *delivery.Service, carts *cart.RedisStore) {
	Orders = orders
	Payments = payments
	Deliveries = deliveries
	Carts = carts
}

// respondError traduit la taxonomie d'erreurs métier en réponses HTTP.
// Les erreurs passerelle sortent en 502 : l'amont a échoué, le client peut
// réessayer avec backoff.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *models.ValidationError
		transitionErr *models.InvalidTransitionError
		gwAuthErr     *gateway.AuthError
		gwOrderErr    *gateway.OrderError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": validationErr.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": transitionErr.Error()})
	case errors.Is(err, models.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
	case errors.Is(err, models.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide ou introuvable"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Ressource introuvable"})
	case errors.Is(err, models.ErrDuplicateDelivery):
		c.JSON(http.StatusConflict, gin.H{"error": "Une livraison existe déjà pour cette commande"})
	case errors.Is(err, models.ErrReferenceMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Référence de paiement manquante"})
	case errors.Is(err, models.ErrPaymentNotFound):
		// Non-2xx volontaire : le fournisseur relivrera le webhook.
		c.JSON(http.StatusNotFound, gin.H{"error": "Aucun paiement pour cette référence"})
	case errors.As(err, &gwAuthErr), errors.As(err, &gwOrderErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erreur passerelle de paiement, réessayez plus tard", "details": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
