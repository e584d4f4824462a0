package main

import (
	"net/http"

	"storefront-be/internal/cart"
	"storefront-be/internal/category"
	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/discount"
	"storefront-be/internal/invoice"
	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/notification"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/rating"
	"storefront-be/internal/refund"
	"storefront-be/internal/user"
	"storefront-be/internal/wishlist"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	database := db.InitDB(cfg)
	defer database.Close()

	// The broker is optional for the API process: notifications are still
	// persisted when it is down, only the outbound delivery pauses.
	publisher, err := notification.NewPublisher(cfg.AmqpURL)
	if err != nil {
		log.Warn("rabbitmq unavailable, outbound notifications disabled", zap.Error(err))
		publisher = nil
	} else {
		defer publisher.Close()
	}

	notificationRepo := notification.NewRepository(database)
	notificationSvc := notification.NewService(notificationRepo, publisher)

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo)

	categoryRepo := category.NewRepository(database)

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo)

	cartRepo := cart.NewRepository(database)
	cartSvc := cart.NewService(cartRepo)

	paymentRepo := payment.NewRepository(database)

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo, paymentRepo, notificationSvc)

	refundRepo := refund.NewRepository(database)
	refundSvc := refund.NewService(refundRepo, orderRepo, paymentRepo, notificationSvc)

	invoiceRepo := invoice.NewRepository(database)

	wishlistRepo := wishlist.NewRepository(database)

	ratingRepo := rating.NewRepository(database)
	ratingSvc := rating.NewService(ratingRepo)

	discountRepo := discount.NewRepository(database)
	discountSvc := discount.NewService(discountRepo, wishlistRepo, notificationSvc)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogging(), middleware.RateLimit(), middleware.Prometheus())

	user.NewHandler(userSvc).RegisterRoutes(r)
	category.NewHandler(categoryRepo).RegisterRoutes(r)
	product.NewHandler(productSvc).RegisterRoutes(r)
	cart.NewHandler(cartSvc).RegisterRoutes(r)
	order.NewHandler(orderSvc).RegisterRoutes(r)
	refund.NewHandler(refundSvc).RegisterRoutes(r)
	invoice.NewHandler(invoiceRepo).RegisterRoutes(r)
	payment.NewHandler(paymentRepo).RegisterRoutes(r)
	wishlist.NewHandler(wishlistRepo).RegisterRoutes(r)
	rating.NewHandler(ratingSvc).RegisterRoutes(r)
	discount.NewHandler(discountSvc).RegisterRoutes(r)
	notification.NewHandler(notificationSvc).RegisterRoutes(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info("server listening", zap.String("port", cfg.AppPort))
	if err := r.Run(":" + cfg.AppPort); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
