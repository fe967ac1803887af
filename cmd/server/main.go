package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"ngozi_back_end/internal/config"
	"ngozi_back_end/internal/database"
	"ngozi_back_end/internal/gateway"
	"ngozi_back_end/internal/handlers"
	"ngozi_back_end/internal/notify"
	cartrepo "ngozi_back_end/internal/repository/cart"
	"ngozi_back_end/internal/repository/catalog"
	deliveryrepo "ngozi_back_end/internal/repository/delivery"
	orderrepo "ngozi_back_end/internal/repository/order"
	paymentrepo "ngozi_back_end/internal/repository/payment"
	"ngozi_back_end/internal/routes"
	deliverysvc "ngozi_back_end/internal/services/delivery"
	ordersvc "ngozi_back_end/internal/services/order"
	paymentsvc "ngozi_back_end/internal/services/payment"
)

func main() {
	config.Load()

	database.ConnectDatabases()
	defer database.CloseScylla()

	// Passerelle de paiement
	pesapal := gateway.New()
	callbackURL := os.Getenv("PESAPAL_CALLBACK_URL")
	if callbackURL == "" {
		baseURL := os.Getenv("BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}
		callbackURL = baseURL + "/api/payment/webhook"
	}

	// Notifications e-mail asynchrones
	mailer := notify.NewSMTPMailer()
	dispatcher := notify.NewAsyncDispatcher(mailer)
	defer dispatcher.Close()

	// Dépôts
	orders := orderrepo.NewScyllaRepository()
	payments := paymentrepo.NewScyllaRepository()
	deliveries := deliveryrepo.NewScyllaRepository()
	carts := cartrepo.NewRedisStore(database.Redis)
	products := catalog.NewScyllaCatalog(database.Redis)

	// Services : les livraisons d'abord, le coordinateur de commandes
	// s'en sert à la confirmation des paiements invités.
	deliveryService := deliverysvc.New(deliveries, orders, dispatcher)
	orderService := ordersvc.New(orders, payments, carts, products, pesapal, deliveryService, dispatcher, callbackURL)
	paymentService := paymentsvc.New(payments, orders, pesapal, orderService, callbackURL)

	handlers.Init(orderService, paymentService, deliveryService, carts)

	r := gin.Default()
	routes.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Println("🚀 Serveur Ngozi lancé sur le port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Erreur serveur HTTP: %v", err)
		}
	}()

	// Arrêt propre : on laisse les requêtes en cours se terminer, puis la
	// file de notifications se vider avant de fermer les sessions ScyllaDB.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🔌 Arrêt du serveur en cours...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Arrêt forcé du serveur: %v", err)
	}
}
