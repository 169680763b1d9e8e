package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"pantiku_backend/internals/features/invoices/controller"
)

// InvoiceAdminRoutes: generate & baca invoice bulanan (group sudah ber-auth).
func InvoiceAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewInvoiceController(db)

	grp := admin.Group("/invoices")
	grp.Post("/generate", ctrl.GenerateInvoice)
	grp.Get("/", ctrl.GetAllInvoices)
	grp.Get("/job-runs", ctrl.GetJobRuns)
	grp.Get("/:number", ctrl.GetInvoiceByNumber)
	grp.Get("/:number/archive", ctrl.GetInvoiceArchive)
}
