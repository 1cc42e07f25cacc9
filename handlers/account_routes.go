// handlers/account_routes.go
package handlers

import (
	"leadstore/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAccountRoutes(app *fiber.App, accounts *services.AccountService) {
	// Public — registration consumes the pending referral cookie.
	app.Post("/register", accounts.RegisterHandler)
	app.Get("/verify/:token", accounts.VerifyEmailHandler)
	app.Post("/password-reset", accounts.RequestPasswordResetHandler)
	app.Post("/password-reset/:token", accounts.ResetPasswordHandler)

	// Secured — user context enforced by middleware on /s/ paths.
	app.Get("/s/profile", accounts.Me)
	app.Put("/s/profile/paypal", accounts.UpdatePaypalEmail)
}
