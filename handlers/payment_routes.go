// handlers/payment_routes.go
package handlers

import (
	"leadstore/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(app *fiber.App, payments *services.PaymentService) {
	// Public catalog — the six fixed credit packages.
	app.Get("/packages", payments.ListPackages)

	// Provider callback. Gateway auth still applies; the provider's
	// events are relayed through the gateway after signature checks.
	app.Post("/payments/webhook", payments.Webhook)

	app.Post("/s/checkout", payments.Checkout)
	app.Get("/s/purchases", payments.MyPurchases)
}
