package controller

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	helper "pantiku_backend/internals/helpers"
	helperAuth "pantiku_backend/internals/helpers/auth"
	"pantiku_backend/internals/helpers/oss"

	"pantiku_backend/internals/constants"
	"pantiku_backend/internals/features/classlogs/dto"
	"pantiku_backend/internals/features/classlogs/model"
	"pantiku_backend/internals/features/classlogs/service"
	orphModel "pantiku_backend/internals/features/orphanages/model"
	userModel "pantiku_backend/internals/features/users/model"
)

type ClassLogController struct {
	DB       *gorm.DB
	Verifier *service.PhotoVerificationService
	OSS      *oss.OSSService
	Validate *validator.Validate
}

func NewClassLogController(db *gorm.DB) *ClassLogController {
	ossSvc, err := oss.NewOSSServiceFromEnv("")
	if err != nil {
		log.Printf("[WARN] OSS tidak dikonfigurasi, upload foto class log nonaktif: %v", err)
	}
	return &ClassLogController{
		DB:       db,
		Verifier: service.NewPhotoVerificationService(db, service.NewVisionClientFromEnv()),
		OSS:      ossSvc,
		Validate: validator.New(),
	}
}

// 🟢 CREATE CLASS LOG
// Row + foto dipersist dalam satu transaksi; analisis foto jalan detached
// setelah response (caller tidak pernah menunggu vision API).
func (ctrl *ClassLogController) CreateClassLog(c *fiber.Ctx) error {
	teacherID, err := helperAuth.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	var body dto.CreateClassLogRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	classDate, err := time.Parse("2006-01-02", body.ClassLogDate)
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "class_log_date harus berformat YYYY-MM-DD")
	}

	var orphanage orphModel.OrphanageModel
	if err := ctrl.DB.First(&orphanage, "orphanage_id = ?", body.ClassLogOrphanageID).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Orphanage tidak ditemukan")
	}
	var teacher userModel.UserModel
	if err := ctrl.DB.First(&teacher, "user_id = ? AND user_is_active = ?", teacherID, true).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Teacher tidak ditemukan atau tidak aktif")
	}

	m := body.ToModel(teacherID, classDate)
	if err := ctrl.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(m).Error // foto ikut lewat asosiasi
	}); err != nil {
		log.Printf("[ERROR] create class log: %v", err)
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menyimpan class log")
	}

	ctrl.Verifier.AnalyzeDetached(ctrl.analysisInput(m, &orphanage, body.ExifLatitude, body.ExifLongitude, body.ExifDateTaken))

	return helper.SuccessWithCode(c, fiber.StatusCreated, "Class log berhasil dibuat", dto.ToClassLogResponse(m))
}

// 🟢 UPDATE CLASS LOG (partial; photos = all-or-nothing replacement)
func (ctrl *ClassLogController) UpdateClassLog(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "class log id tidak valid")
	}

	var body dto.UpdateClassLogRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Invalid request")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.ValidationError(c, err)
	}

	var m model.ClassLogModel
	if err := ctrl.DB.Preload("Photos").First(&m, "class_log_id = ?", id).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Class log tidak ditemukan")
	}

	if ferr := ctrl.requireOwnership(c, &m, constants.PermClassLogsEditAll); ferr != nil {
		return helper.FromFiberError(c, ferr)
	}

	updates := map[string]interface{}{}
	if body.ClassLogDate != nil {
		classDate, err := time.Parse("2006-01-02", *body.ClassLogDate)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "class_log_date harus berformat YYYY-MM-DD")
		}
		updates["class_log_date"] = classDate
		m.ClassLogDate = classDate
	}
	if body.ClassLogTime != nil {
		updates["class_log_time"] = *body.ClassLogTime
		m.ClassLogTime = body.ClassLogTime
	}
	if body.ClassLogStudentCount != nil {
		updates["class_log_student_count"] = *body.ClassLogStudentCount
		m.ClassLogStudentCount = body.ClassLogStudentCount
	}

	replacedURLs := []string{}
	if body.ReplacesPhotos() {
		for _, p := range m.Photos {
			replacedURLs = append(replacedURLs, p.ClassLogPhotoURL)
		}
		// Replace foto membatalkan SEMUA verdict AI lama dalam update yang sama.
		for col, v := range model.AIFieldsNulled() {
			updates[col] = v
		}
	}

	newPhotos := body.NewPhotoModels(m.ClassLogID)
	if err := ctrl.DB.Transaction(func(tx *gorm.DB) error {
		if body.ReplacesPhotos() {
			if err := tx.Where("class_log_photo_class_log_id = ?", m.ClassLogID).
				Delete(&model.ClassLogPhotoModel{}).Error; err != nil {
				return err
			}
			if err := tx.Create(&newPhotos).Error; err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&model.ClassLogModel{}).
			Where("class_log_id = ?", m.ClassLogID).
			Updates(updates).Error
	}); err != nil {
		log.Printf("[ERROR] update class log %s: %v", m.ClassLogID, err)
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menyimpan class log")
	}

	if body.ReplacesPhotos() {
		m.Photos = newPhotos
		m.ClassLogAIKidsCount = nil
		m.ClassLogAILocation = nil
		m.ClassLogAIPhotoTimestamp = nil
		m.ClassLogAIOrphanageMatch = nil
		m.ClassLogAIConfidenceNotes = nil
		m.ClassLogAIGPSDistanceM = nil
		m.ClassLogAIDateMatch = nil
		m.ClassLogAITimeMatch = nil
		m.ClassLogExifDateTaken = nil
		m.ClassLogAIAnalyzedAt = nil

		// foto lama di OSS dibersihkan best-effort
		if ctrl.OSS != nil && len(replacedURLs) > 0 {
			go ctrl.OSS.DeleteManyByPublicURL(context.Background(), replacedURLs)
		}

		var orphanage orphModel.OrphanageModel
		if err := ctrl.DB.First(&orphanage, "orphanage_id = ?", m.ClassLogOrphanageID).Error; err == nil {
			ctrl.Verifier.AnalyzeDetached(ctrl.analysisInput(&m, &orphanage, body.ExifLatitude, body.ExifLongitude, body.ExifDateTaken))
		} else {
			log.Printf("[WARN] re-analyze class_log_id=%s: orphanage tidak ditemukan: %v", m.ClassLogID, err)
		}
	}

	return helper.Success(c, "Class log berhasil diperbarui", dto.ToClassLogResponse(&m))
}

// 🟢 DELETE CLASS LOG
func (ctrl *ClassLogController) DeleteClassLog(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "class log id tidak valid")
	}

	var m model.ClassLogModel
	if err := ctrl.DB.Preload("Photos").First(&m, "class_log_id = ?", id).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Class log tidak ditemukan")
	}

	if ferr := ctrl.requireOwnership(c, &m, constants.PermClassLogsDeleteAll); ferr != nil {
		return helper.FromFiberError(c, ferr)
	}

	urls := make([]string, 0, len(m.Photos))
	for _, p := range m.Photos {
		urls = append(urls, p.ClassLogPhotoURL)
	}

	if err := ctrl.DB.Transaction(func(tx *gorm.DB) error {
		// foto ikut terhapus bersama parent-nya
		if err := tx.Where("class_log_photo_class_log_id = ?", m.ClassLogID).
			Delete(&model.ClassLogPhotoModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&m).Error
	}); err != nil {
		log.Printf("[ERROR] delete class log %s: %v", m.ClassLogID, err)
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menghapus class log")
	}

	if ctrl.OSS != nil && len(urls) > 0 {
		go ctrl.OSS.DeleteManyByPublicURL(context.Background(), urls)
	}

	return helper.Success(c, "Class log berhasil dihapus", fiber.Map{"class_log_id": m.ClassLogID})
}

// 🟢 GET ALL (filter opsional orphanage_id / teacher_id)
func (ctrl *ClassLogController) GetAllClassLogs(c *fiber.Ctx) error {
	q := ctrl.DB.Preload("Photos", func(db *gorm.DB) *gorm.DB {
		return db.Order("class_log_photo_sort_order asc")
	})

	if raw := c.Query("orphanage_id"); raw != "" {
		oid, err := uuid.Parse(raw)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "orphanage_id tidak valid")
		}
		q = q.Where("class_log_orphanage_id = ?", oid)
	}
	if raw := c.Query("teacher_id"); raw != "" {
		tid, err := uuid.Parse(raw)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "teacher_id tidak valid")
		}
		q = q.Where("class_log_teacher_id = ?", tid)
	}

	var list []model.ClassLogModel
	if err := q.Order("class_log_date desc, created_at desc").Find(&list).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mengambil data class log")
	}

	out := make([]*dto.ClassLogResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.ToClassLogResponse(&list[i]))
	}
	return helper.Success(c, "OK", out)
}

// 🟢 GET BY ID
func (ctrl *ClassLogController) GetClassLogByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "class log id tidak valid")
	}
	var m model.ClassLogModel
	if err := ctrl.DB.Preload("Photos", func(db *gorm.DB) *gorm.DB {
		return db.Order("class_log_photo_sort_order asc")
	}).First(&m, "class_log_id = ?", id).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Class log tidak ditemukan")
	}
	return helper.Success(c, "OK", dto.ToClassLogResponse(&m))
}

// 🟢 RE-ANALYZE (manual, admin/manager)
// Memicu ulang analisis untuk log yang belum/gagal dianalisis. Tidak ada
// re-scan otomatis terjadwal; ini satu-satunya jalur retry.
func (ctrl *ClassLogController) ReanalyzeClassLog(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermClassLogsReanalyze) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses re-analyze class log")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "class log id tidak valid")
	}
	var m model.ClassLogModel
	if err := ctrl.DB.Preload("Photos", func(db *gorm.DB) *gorm.DB {
		return db.Order("class_log_photo_sort_order asc")
	}).First(&m, "class_log_id = ?", id).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Class log tidak ditemukan")
	}
	if len(m.Photos) == 0 {
		return helper.Error(c, fiber.StatusBadRequest, "Class log tidak punya foto untuk dianalisis")
	}
	var orphanage orphModel.OrphanageModel
	if err := ctrl.DB.First(&orphanage, "orphanage_id = ?", m.ClassLogOrphanageID).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Orphanage tidak ditemukan")
	}

	// hint GPS foto tidak dipersist; yang tersedia saat re-analyze hanya
	// exif_date_taken tersimpan (kalau ada) + koordinat orphanage
	ctrl.Verifier.AnalyzeDetached(ctrl.analysisInput(&m, &orphanage, nil, nil, m.ClassLogExifDateTaken))

	return helper.SuccessWithCode(c, fiber.StatusAccepted, "Analisis dijadwalkan ulang", fiber.Map{"class_log_id": m.ClassLogID})
}

// 🟢 UPLOAD PHOTO
// Multipart → ekstrak EXIF dari byte asli (sebelum reencode membuang metadata)
// → konversi WebP → upload OSS. Response membawa hint EXIF untuk dioper
// kembali saat Create/Update.
func (ctrl *ClassLogController) UploadClassLogPhoto(c *fiber.Ctx) error {
	if _, err := helperAuth.GetUserID(c); err != nil {
		return helper.FromFiberError(c, err)
	}
	if ctrl.OSS == nil {
		return helper.Error(c, fiber.StatusServiceUnavailable, "Penyimpanan foto belum dikonfigurasi")
	}

	orphanageID, err := uuid.Parse(c.Params("orphanage_id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "orphanage id tidak valid")
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "File 'photo' wajib diunggah")
	}
	raw, err := oss.ReadMultipart(fh)
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, err.Error())
	}

	exif := service.ExtractExif(raw)

	url, err := ctrl.OSS.UploadPhotoAsWebP(c.Context(), orphanageID, raw, fh.Filename)
	if err != nil {
		log.Printf("[ERROR] upload foto class log orphanage_id=%s: %v", orphanageID, err)
		return helper.Error(c, fiber.StatusBadGateway, "Gagal mengunggah foto")
	}

	resp := fiber.Map{"url": url}
	if exif.GPS != nil {
		resp["exif_latitude"] = exif.GPS.Latitude
		resp["exif_longitude"] = exif.GPS.Longitude
	}
	if exif.DateTaken != nil {
		resp["exif_date_taken"] = *exif.DateTaken
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Foto berhasil diunggah", resp)
}

// 🟢 LIST STORED PHOTOS (audit blob per orphanage, prefix-based)
func (ctrl *ClassLogController) ListStoredPhotos(c *fiber.Ctx) error {
	if _, err := helperAuth.GetUserID(c); err != nil {
		return helper.FromFiberError(c, err)
	}
	if ctrl.OSS == nil {
		return helper.Error(c, fiber.StatusServiceUnavailable, "Penyimpanan foto belum dikonfigurasi")
	}

	orphanageID, err := uuid.Parse(c.Params("orphanage_id"))
	if err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "orphanage id tidak valid")
	}

	prefix := fmt.Sprintf("orphanages/%s/class-logs", orphanageID.String())
	keys, err := ctrl.OSS.ListKeys(c.Context(), prefix)
	if err != nil {
		log.Printf("[ERROR] list foto OSS orphanage_id=%s: %v", orphanageID, err)
		return helper.Error(c, fiber.StatusBadGateway, "Gagal membaca daftar foto")
	}

	urls := make([]string, 0, len(keys))
	for _, k := range keys {
		urls = append(urls, ctrl.OSS.PublicURL(k))
	}
	return helper.Success(c, "OK", fiber.Map{"count": len(urls), "urls": urls})
}

/* =========================================================
   Internal
========================================================= */

// requireOwnership: nil kalau caller pemilik log atau punya permission
// override. Error yang dikembalikan BELUM ditulis ke response — caller wajib
// memetakannya via helper.FromFiberError.
func (ctrl *ClassLogController) requireOwnership(c *fiber.Ctx, m *model.ClassLogModel, overridePerm string) error {
	userID, err := helperAuth.GetUserID(c)
	if err != nil {
		return err
	}
	if userID == m.ClassLogTeacherID {
		return nil
	}
	if helperAuth.HasPermission(helperAuth.GetRoles(c), overridePerm) {
		return nil
	}
	return fiber.NewError(fiber.StatusForbidden, "Class log ini milik teacher lain")
}

func (ctrl *ClassLogController) analysisInput(m *model.ClassLogModel, orphanage *orphModel.OrphanageModel, exifLat, exifLng *float64, exifDate *string) service.AnalysisInput {
	urls := make([]string, 0, len(m.Photos))
	for _, p := range m.Photos {
		urls = append(urls, p.ClassLogPhotoURL)
	}

	var orphGPS *service.GPSCoordinate
	if orphanage.OrphanageLatitude != nil && orphanage.OrphanageLongitude != nil {
		orphGPS = &service.GPSCoordinate{
			Latitude:  *orphanage.OrphanageLatitude,
			Longitude: *orphanage.OrphanageLongitude,
		}
	}
	var photoGPS *service.GPSCoordinate
	if exifLat != nil && exifLng != nil {
		photoGPS = &service.GPSCoordinate{Latitude: *exifLat, Longitude: *exifLng}
	}

	return service.AnalysisInput{
		ClassLogID:    m.ClassLogID,
		PhotoURLs:     urls,
		OrphanageName: orphanage.OrphanageName,
		OrphanageGPS:  orphGPS,
		ClassDate:     m.ClassLogDate,
		ClassTime:     m.ClassLogTime,
		PhotoGPS:      photoGPS,
		ExifDateTaken: exifDate,
	}
}
