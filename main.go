package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"leadstore/config"
	"leadstore/handlers"
	"leadstore/middleware"
	"leadstore/models"
	"leadstore/services"
	"leadstore/utils"
	"leadstore/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024, // fulfillment CSVs can run large
	})

	// GLOBAL: only Gateway requests allowed — no exceptions.
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(middleware.UserContextMiddleware())

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.CreditPurchase{},
		&models.AffiliateClick{},
		&models.AffiliateCommission{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	mailer := workers.NewMailer(utils.NewSMTPSender(cfg), 256)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go mailer.Run(ctx)

	affiliateService := services.NewAffiliateService(db, cfg.StoreBaseURL)
	accountService := services.NewAccountService(db, mailer, affiliateService, cfg.StoreBaseURL)
	orderService := services.NewOrderService(db, mailer, cfg.AdminEmail)
	paymentService := services.NewPaymentService(db, mailer, cfg,
		services.NewPaymentClient(cfg.PaymentAPIURL, cfg.PaymentToken))
	billingService := services.NewBillingService(db)

	paymentService.StartExpiryScheduler()
	billingService.StartBillingDigest()

	handlers.SetupAccountRoutes(app, accountService)
	handlers.SetupPaymentRoutes(app, paymentService)
	handlers.SetupOrderRoutes(app, orderService)
	handlers.SetupAffiliateRoutes(app, affiliateService, billingService)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on %s", cfg.ListenAddr)
	log.Println("Mail worker running")
	log.Println("Purchase expiry and billing digest schedulers running")
	log.Println("GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
