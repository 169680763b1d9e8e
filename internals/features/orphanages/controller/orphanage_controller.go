package controller

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	helper "pantiku_backend/internals/helpers"
	helperAuth "pantiku_backend/internals/helpers/auth"

	"pantiku_backend/internals/constants"
	"pantiku_backend/internals/features/orphanages/dto"
	"pantiku_backend/internals/features/orphanages/model"
	"pantiku_backend/internals/features/orphanages/service"
)

type OrphanageController struct {
	DB       *gorm.DB
	Geocoder *service.GeocodeClient
	Validate *validator.Validate
}

func NewOrphanageController(db *gorm.DB) *OrphanageController {
	return &OrphanageController{
		DB:       db,
		Geocoder: service.NewGeocodeClient(),
		Validate: validator.New(),
	}
}

// 🟢 CREATE ORPHANAGE
func (ctrl *OrphanageController) CreateOrphanage(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermOrphanagesManage) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses mengelola orphanage")
	}

	var body dto.CreateOrphanageRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	m := body.ToModel(ctrl.uniqueSlug(body.OrphanageName))
	if err := ctrl.DB.Create(m).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menyimpan orphanage")
	}

	// Geocode detached: koordinat menyusul, create tidak menunggu provider.
	go ctrl.geocodeInBackground(m.OrphanageID, m.OrphanageAddress)

	return helper.SuccessWithCode(c, fiber.StatusCreated, "Orphanage berhasil dibuat", m)
}

// 🟢 UPDATE ORPHANAGE (partial)
func (ctrl *OrphanageController) UpdateOrphanage(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermOrphanagesManage) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses mengelola orphanage")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "orphanage id tidak valid")
	}

	var body dto.UpdateOrphanageRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	var m model.OrphanageModel
	if err := ctrl.DB.First(&m, "orphanage_id = ?", id).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Orphanage tidak ditemukan")
	}

	addressChanged := body.Apply(&m)
	if err := ctrl.DB.Save(&m).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menyimpan orphanage")
	}

	if addressChanged {
		go ctrl.geocodeInBackground(m.OrphanageID, m.OrphanageAddress)
	}

	return helper.Success(c, "Orphanage berhasil diperbarui", m)
}

// 🟢 GET ALL (admin)
func (ctrl *OrphanageController) GetAllOrphanages(c *fiber.Ctx) error {
	var list []model.OrphanageModel
	if err := ctrl.DB.Order("created_at desc").Find(&list).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mengambil data orphanage")
	}
	return helper.Success(c, "OK", list)
}

// 🟢 GET BY ID
func (ctrl *OrphanageController) GetOrphanageByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "orphanage id tidak valid")
	}
	var m model.OrphanageModel
	if err := ctrl.DB.First(&m, "orphanage_id = ?", id).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Orphanage tidak ditemukan")
	}
	return helper.Success(c, "OK", m)
}

/* =========================================================
   Kids roster
========================================================= */

// 🟢 LIST KIDS per orphanage
func (ctrl *OrphanageController) GetKidsByOrphanage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "orphanage id tidak valid")
	}
	var kids []model.KidModel
	if err := ctrl.DB.Where("kid_orphanage_id = ?", id).Order("kid_name asc").Find(&kids).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mengambil data anak")
	}
	return helper.Success(c, "OK", kids)
}

// 🟢 ADD KID ke roster
func (ctrl *OrphanageController) CreateKid(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermOrphanagesManage) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses mengelola orphanage")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "orphanage id tidak valid")
	}

	var body dto.CreateKidRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	var orphanage model.OrphanageModel
	if err := ctrl.DB.First(&orphanage, "orphanage_id = ?", id).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Orphanage tidak ditemukan")
	}

	m := body.ToModel(orphanage.OrphanageID)
	if err := ctrl.DB.Create(m).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menyimpan data anak")
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Anak berhasil ditambahkan", m)
}

// 🟢 UPDATE KID (partial)
func (ctrl *OrphanageController) UpdateKid(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermOrphanagesManage) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses mengelola orphanage")
	}

	kidID, err := uuid.Parse(c.Params("kid_id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "kid id tidak valid")
	}

	var body dto.UpdateKidRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	var m model.KidModel
	if err := ctrl.DB.First(&m, "kid_id = ?", kidID).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Data anak tidak ditemukan")
	}

	body.Apply(&m)
	if err := ctrl.DB.Save(&m).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menyimpan data anak")
	}
	return helper.Success(c, "Data anak berhasil diperbarui", m)
}

// 🟢 DELETE KID (soft delete)
func (ctrl *OrphanageController) DeleteKid(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermOrphanagesManage) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses mengelola orphanage")
	}

	kidID, err := uuid.Parse(c.Params("kid_id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "kid id tidak valid")
	}

	var m model.KidModel
	if err := ctrl.DB.First(&m, "kid_id = ?", kidID).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Data anak tidak ditemukan")
	}
	if err := ctrl.DB.Delete(&m).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menghapus data anak")
	}
	return helper.Success(c, "Data anak berhasil dihapus", nil)
}

/* =========================================================
   Internal
========================================================= */

func (ctrl *OrphanageController) geocodeInBackground(id uuid.UUID, address string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] geocode panic orphanage_id=%s: %v", id, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res, err := ctrl.Geocoder.Lookup(ctx, address)
	if err != nil {
		log.Printf("[WARN] geocode orphanage_id=%s: %v", id, err)
		return
	}
	if res == nil {
		return
	}

	if err := ctrl.DB.Model(&model.OrphanageModel{}).
		Where("orphanage_id = ?", id).
		Updates(map[string]interface{}{
			"orphanage_latitude":  res.Latitude,
			"orphanage_longitude": res.Longitude,
		}).Error; err != nil {
		log.Printf("[ERROR] geocode save orphanage_id=%s: %v", id, err)
	}
}

func (ctrl *OrphanageController) uniqueSlug(name string) string {
	base := slugify(name)
	slug := base
	for i := 2; ; i++ {
		var count int64
		ctrl.DB.Model(&model.OrphanageModel{}).Where("orphanage_slug = ?", slug).Count(&count)
		if count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, s)
}
