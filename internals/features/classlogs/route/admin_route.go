package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"pantiku_backend/internals/features/classlogs/controller"
	"pantiku_backend/internals/middlewares"
)

// ClassLogAdminRoutes: lifecycle class log + upload foto (group sudah ber-auth).
func ClassLogAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewClassLogController(db)

	grp := admin.Group("/class-logs")
	grp.Post("/", ctrl.CreateClassLog)
	grp.Get("/", ctrl.GetAllClassLogs)
	grp.Get("/:id", ctrl.GetClassLogByID)
	grp.Put("/:id", ctrl.UpdateClassLog)
	grp.Delete("/:id", ctrl.DeleteClassLog)
	grp.Post("/:id/reanalyze", ctrl.ReanalyzeClassLog)

	// upload dipisah per orphanage supaya key OSS rapi per panti
	admin.Post("/orphanages/:orphanage_id/class-log-photos",
		middlewares.UploadRateLimiter(), ctrl.UploadClassLogPhoto)
	admin.Get("/orphanages/:orphanage_id/class-log-photos", ctrl.ListStoredPhotos)
}
