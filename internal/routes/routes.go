package routes

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ngozi_back_end/internal/handlers"
	"ngozi_back_end/internal/middleware"
)

func RegisterRoutes(r *gin.Engine) {
	r.Use(corsMiddleware())

	api := r.Group("/api")

	// Commandes
	orders := api.Group("/orders")
	{
		orders.POST("", handlers.CreateGuestOrder)
		orders.POST("/secure", middleware.AuthRequired(), handlers.CreateSecureOrder)
		orders.POST("/checkout", middleware.AuthRequired(), handlers.Checkout)
		orders.POST("/checkout/guest", middleware.PublicRateLimit(), handlers.GuestCheckout)

		orders.GET("", middleware.AuthRequired(), middleware.RequireAdmin, handlers.GetAllOrders)
		orders.GET("/:id", middleware.AuthRequired(), middleware.RequireAdmin, handlers.GetOrderByID)
		orders.PATCH("/:id", middleware.AuthRequired(), middleware.RequireAdmin, handlers.UpdateOrderStatus)
		orders.DELETE("/:id", middleware.AuthRequired(), middleware.RequireAdmin, handlers.DeleteOrder)
	}

	// Paiements
	payment := api.Group("/payment")
	{
		payment.POST("/initiate", middleware.AuthRequired(), handlers.InitiatePayment)
		payment.POST("/webhook", middleware.PublicRateLimit(), handlers.PaymentWebhook)

		payment.GET("", middleware.AuthRequired(), middleware.RequireAdmin, handlers.GetAllPayments)
		payment.GET("/:id", middleware.AuthRequired(), middleware.RequireAdmin, handlers.GetPaymentByID)
	}

	// Livraisons
	delivery := api.Group("/delivery")
	{
		delivery.POST("", middleware.AuthRequired(), middleware.RequireAdmin, handlers.CreateDelivery)
		delivery.PATCH("/:id", middleware.AuthRequired(), middleware.RequireAdmin, handlers.UpdateDelivery)

		// Suivi public par code, limité par IP
		delivery.GET("/track/:code", middleware.PublicRateLimit(), handlers.TrackDelivery)
		delivery.GET("/track/:code/qr", middleware.PublicRateLimit(), handlers.TrackingQRCode)
		delivery.GET("/order/:orderId", middleware.PublicRateLimit(), handlers.GetDeliveryByOrder)
	}

	// Panier
	cart := api.Group("/cart", middleware.AuthOptional())
	{
		cart.GET("", handlers.GetCart)
		cart.POST("/add", handlers.AddCartItem)
		cart.POST("/remove", handlers.RemoveCartItem)
		cart.DELETE("", handlers.ClearCart)
	}
}

func corsMiddleware() gin.HandlerFunc {
	origins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Pesapal-Signature"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
