package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ngozi_back_end/internal/database"
)

const (
	// Limites pour les endpoints publics (suivi de livraison, webhook IPN)
	PublicMaxRequests = 60
	PublicWindow      = 1 * time.Minute
)

// PublicRateLimit limite les endpoints ouverts (sans authentification)
// par adresse IP via un compteur Redis à fenêtre glissante.
func PublicRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		key := "public_rate:" + c.ClientIP()

		count, err := database.Redis.Incr(ctx, key).Result()
		if err != nil {
			// Redis indisponible : on laisse passer plutôt que de bloquer le trafic
			c.Next()
			return
		}
		if count == 1 {
			database.Redis.Expire(ctx, key, PublicWindow)
		}

		if count > PublicMaxRequests {
			ttl := database.Redis.TTL(ctx, key).Val()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de requêtes. Réessayez dans %d secondes", int(ttl.Seconds())),
				"retry_after": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
