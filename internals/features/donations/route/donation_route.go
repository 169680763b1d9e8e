package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"pantiku_backend/internals/features/donations/controller"
	"pantiku_backend/internals/middlewares"
)

// DonationPublicRoutes: checkout donasi (tanpa auth, dibatasi rate limiter).
func DonationPublicRoutes(public fiber.Router, db *gorm.DB) {
	ctrl := controller.NewDonationController(db)

	grp := public.Group("/donations", middlewares.CheckoutRateLimiter())
	grp.Post("/stripe/checkout", ctrl.CreateStripeCheckout)
	grp.Post("/paypal/orders", ctrl.CreatePayPalOrder)
	grp.Post("/paypal/capture", ctrl.CapturePayPalOrder)
	grp.Post("/paypal/subscriptions", ctrl.CreatePayPalSubscription)
	grp.Post("/midtrans/checkout", ctrl.CreateMidtransCheckout)
}

// DonationWebhookRoutes: endpoint push provider. Tanpa auth JWT dan tanpa
// rate limiter — autentikasinya verifikasi signature di masing-masing handler.
func DonationWebhookRoutes(app fiber.Router, db *gorm.DB) {
	ctrl := controller.NewWebhookController(db)

	grp := app.Group("/webhooks")
	grp.Post("/stripe", ctrl.HandleStripeWebhook)
	grp.Post("/paypal", ctrl.HandlePayPalWebhook)
	grp.Post("/midtrans", ctrl.HandleMidtransNotification)
}

// DonationAdminRoutes: ledger & audit trail untuk dashboard (group ber-auth).
func DonationAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewDonationController(db)

	grp := admin.Group("/donations")
	grp.Get("/", ctrl.GetAllDonations)
	grp.Get("/gateway-events", ctrl.GetGatewayEvents)
}
