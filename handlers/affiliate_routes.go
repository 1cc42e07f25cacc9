// handlers/affiliate_routes.go
package handlers

import (
	"leadstore/middleware"
	"leadstore/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAffiliateRoutes(app *fiber.App, affiliates *services.AffiliateService, billing *services.BillingService) {
	// Public referral link — records the click whether or not the code
	// resolves, parks it in a cookie, and redirects to the storefront.
	app.Get("/ref/:code", affiliates.RefRedirect)

	app.Post("/s/affiliate/code", affiliates.CreateCode)
	app.Get("/s/affiliate/stats", affiliates.GetStats)

	admin := app.Group("/s/admin", middleware.RequireRole("admin"))
	admin.Get("/commissions/bills", billing.GetMonthlyBills)
	admin.Post("/commissions/mark-paid", billing.MarkPaid)
}
