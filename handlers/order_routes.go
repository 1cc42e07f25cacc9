// handlers/order_routes.go
package handlers

import (
	"leadstore/middleware"
	"leadstore/services"

	"github.com/gofiber/fiber/v2"
)

func SetupOrderRoutes(app *fiber.App, orders *services.OrderService) {
	app.Post("/s/orders", orders.SubmitOrder)
	app.Get("/s/orders", orders.GetMyOrders)
	app.Get("/s/orders/:id", orders.GetOrder)

	// Fulfillment team operations — role-gated, not shared-secret-gated.
	admin := app.Group("/s/admin", middleware.RequireRole("admin"))
	admin.Get("/orders", orders.GetAllOrders)
	admin.Post("/orders/:id/processing", orders.StartProcessing)
	admin.Post("/orders/:id/fulfill", orders.Fulfill)
	admin.Post("/orders/:id/reject", orders.Reject)
}
