package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"pantiku_backend/internals/features/orphanages/controller"
)

// OrphanageAdminRoutes: CRUD orphanage + roster anak (group sudah ber-auth).
func OrphanageAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewOrphanageController(db)

	grp := admin.Group("/orphanages")
	grp.Post("/", ctrl.CreateOrphanage)
	grp.Get("/", ctrl.GetAllOrphanages)
	grp.Get("/:id", ctrl.GetOrphanageByID)
	grp.Patch("/:id", ctrl.UpdateOrphanage)
	grp.Get("/:id/kids", ctrl.GetKidsByOrphanage)
	grp.Post("/:id/kids", ctrl.CreateKid)
	grp.Put("/kids/:kid_id", ctrl.UpdateKid)
	grp.Delete("/kids/:kid_id", ctrl.DeleteKid)
}
