package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"pantiku_backend/internals/configs"
	classlogRoute "pantiku_backend/internals/features/classlogs/route"
	donationRoute "pantiku_backend/internals/features/donations/route"
	invoiceRoute "pantiku_backend/internals/features/invoices/route"
	orphanageRoute "pantiku_backend/internals/features/orphanages/route"
	authMiddleware "pantiku_backend/internals/middlewares/auth"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	startTime = time.Now()

	// ===================== PUBLIC =====================
	log.Println("[INFO] Setting up PUBLIC group...")
	public := app.Group("/api/public")
	donationRoute.DonationPublicRoutes(public, db)

	// ===================== WEBHOOKS =====================
	// Di luar /api/public: tanpa JWT, signature provider = autentikasinya.
	log.Println("[INFO] Setting up WEBHOOK group...")
	donationRoute.DonationWebhookRoutes(app, db)

	// ===================== ADMIN =====================
	log.Println("[INFO] Setting up ADMIN group (AuthJWT)...")
	admin := app.Group("/api/a",
		authMiddleware.AuthJWT(authMiddleware.AuthJWTOpts{
			Secret:              configs.JWTSecret,
			AllowCookieFallback: true,
		}),
	)

	orphanageRoute.OrphanageAdminRoutes(admin, db)
	classlogRoute.ClassLogAdminRoutes(admin, db)
	donationRoute.DonationAdminRoutes(admin, db)
	invoiceRoute.InvoiceAdminRoutes(admin, db)

	// ===================== UPTIME =====================
	app.Get("/api/uptime", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"uptime": time.Since(startTime).String()})
	})
}
