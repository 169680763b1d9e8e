package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"pantiku_backend/internals/features/classlogs/model"
	"pantiku_backend/internals/features/classlogs/service"
	orphModel "pantiku_backend/internals/features/orphanages/model"
	userModel "pantiku_backend/internals/features/users/model"
)

/* =========================================================
   Fixture
========================================================= */

type fixture struct {
	app       *fiber.App
	db        *gorm.DB
	ctrl      *ClassLogController
	orphanage *orphModel.OrphanageModel
	teacher   *userModel.UserModel
	other     *userModel.UserModel
}

// vision yang selalu skip → analisis background tidak pernah memutasi row,
// test jadi deterministik
type skipVision struct{}

func (skipVision) AnalyzeClassPhotos(ctx context.Context, urls []string, orphanage string) (*service.VisionResult, error) {
	return nil, nil
}

// vision yang menahan panggilan sampai di-release, untuk membuktikan handler
// tidak menunggu analisis
type blockingVision struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingVision) AnalyzeClassPhotos(ctx context.Context, urls []string, orphanage string) (*service.VisionResult, error) {
	close(b.started)
	<-b.release
	return &service.VisionResult{OrphanageMatch: "high"}, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&userModel.UserModel{},
		&orphModel.OrphanageModel{},
		&model.ClassLogModel{},
		&model.ClassLogPhotoModel{},
	))

	lat, lng := -6.2000, 106.8000
	orphanage := &orphModel.OrphanageModel{
		OrphanageName:      "Panti Kasih",
		OrphanageSlug:      "panti-kasih",
		OrphanageAddress:   "Jl. Melati 1, Jakarta",
		OrphanageLatitude:  &lat,
		OrphanageLongitude: &lng,
		OrphanageIsActive:  true,
	}
	require.NoError(t, db.Create(orphanage).Error)

	teacher := &userModel.UserModel{
		UserName:     "Bu Sari",
		UserEmail:    "sari@example.com",
		UserRoles:    []byte(`["teacher"]`),
		UserIsActive: true,
	}
	require.NoError(t, db.Create(teacher).Error)

	other := &userModel.UserModel{
		UserName:     "Pak Budi",
		UserEmail:    "budi@example.com",
		UserRoles:    []byte(`["teacher"]`),
		UserIsActive: true,
	}
	require.NoError(t, db.Create(other).Error)

	ctrl := &ClassLogController{
		DB:       db,
		Verifier: service.NewPhotoVerificationService(db, skipVision{}),
		Validate: validator.New(),
	}

	app := fiber.New()
	// pengganti AuthJWT: identitas diambil dari header test
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", c.Get("X-Test-User"))
		var roles []string
		if r := c.Get("X-Test-Roles"); r != "" {
			_ = json.Unmarshal([]byte(r), &roles)
		}
		c.Locals("roles", roles)
		return c.Next()
	})
	app.Post("/class-logs", ctrl.CreateClassLog)
	app.Get("/class-logs", ctrl.GetAllClassLogs)
	app.Get("/class-logs/:id", ctrl.GetClassLogByID)
	app.Put("/class-logs/:id", ctrl.UpdateClassLog)
	app.Delete("/class-logs/:id", ctrl.DeleteClassLog)
	app.Post("/class-logs/:id/reanalyze", ctrl.ReanalyzeClassLog)

	return &fixture{app: app, db: db, ctrl: ctrl, orphanage: orphanage, teacher: teacher, other: other}
}

func (f *fixture) request(t *testing.T, method, path string, body interface{}, userID uuid.UUID, roles string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", userID.String())
	if roles != "" {
		req.Header.Set("X-Test-Roles", roles)
	}
	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func (f *fixture) seedLog(t *testing.T, teacherID uuid.UUID) *model.ClassLogModel {
	t.Helper()
	m := &model.ClassLogModel{
		ClassLogID:          uuid.New(),
		ClassLogOrphanageID: f.orphanage.OrphanageID,
		ClassLogTeacherID:   teacherID,
		ClassLogDate:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	m.Photos = []model.ClassLogPhotoModel{
		{ClassLogPhotoClassLogID: m.ClassLogID, ClassLogPhotoURL: "https://cdn.example.com/old1.webp", ClassLogPhotoSortOrder: 0},
		{ClassLogPhotoClassLogID: m.ClassLogID, ClassLogPhotoURL: "https://cdn.example.com/old2.webp", ClassLogPhotoSortOrder: 1},
	}
	require.NoError(t, f.db.Create(m).Error)
	return m
}

func createBody(orphanageID uuid.UUID) fiber.Map {
	return fiber.Map{
		"class_log_orphanage_id": orphanageID,
		"class_log_date":         "2024-03-15",
		"class_log_time":         "pagi 09:00",
		"photos": []fiber.Map{
			{"url": "https://cdn.example.com/p1.webp", "caption": "kelas pagi", "sort_order": 0},
		},
	}
}

/* =========================================================
   Create
========================================================= */

func TestCreateClassLog(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/class-logs", createBody(f.orphanage.OrphanageID), f.teacher.UserID, "")
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var logs []model.ClassLogModel
	require.NoError(t, f.db.Preload("Photos").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, f.teacher.UserID, logs[0].ClassLogTeacherID)
	assert.Len(t, logs[0].Photos, 1)
	// baru dibuat = belum dianalisis
	assert.Nil(t, logs[0].ClassLogAIAnalyzedAt)
}

func TestCreateClassLogUnknownOrphanage(t *testing.T) {
	f := newFixture(t)
	resp := f.request(t, http.MethodPost, "/class-logs", createBody(uuid.New()), f.teacher.UserID, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateClassLogInactiveTeacher(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(f.teacher).Update("user_is_active", false).Error)

	resp := f.request(t, http.MethodPost, "/class-logs", createBody(f.orphanage.OrphanageID), f.teacher.UserID, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateClassLogBadDate(t *testing.T) {
	f := newFixture(t)

	body := createBody(f.orphanage.OrphanageID)
	body["class_log_date"] = "15-03-2024"
	resp := f.request(t, http.MethodPost, "/class-logs", body, f.teacher.UserID, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateClassLogRequiresPhoto(t *testing.T) {
	f := newFixture(t)

	body := createBody(f.orphanage.OrphanageID)
	body["photos"] = []fiber.Map{}
	resp := f.request(t, http.MethodPost, "/class-logs", body, f.teacher.UserID, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

// Create kembali sukses walaupun vision API masih menggantung.
func TestCreateClassLogDoesNotWaitForAnalysis(t *testing.T) {
	f := newFixture(t)
	vision := &blockingVision{started: make(chan struct{}), release: make(chan struct{})}
	f.ctrl.Verifier = service.NewPhotoVerificationService(f.db, vision)
	defer close(vision.release)

	doneCh := make(chan int, 1)
	go func() {
		resp := f.request(t, http.MethodPost, "/class-logs", createBody(f.orphanage.OrphanageID), f.teacher.UserID, "")
		doneCh <- resp.StatusCode
	}()

	select {
	case code := <-doneCh:
		assert.Equal(t, fiber.StatusCreated, code)
	case <-time.After(3 * time.Second):
		t.Fatal("create menunggu vision API selesai")
	}
	// analisis memang sudah dimulai, hanya tidak ditunggu
	<-vision.started
}

/* =========================================================
   Ownership gate
========================================================= */

func TestUpdateClassLogOwnershipGate(t *testing.T) {
	f := newFixture(t)
	logRow := f.seedLog(t, f.teacher.UserID)

	body := fiber.Map{"class_log_time": "sore 15:00"}
	path := fmt.Sprintf("/class-logs/%s", logRow.ClassLogID)

	// teacher lain tanpa edit_all → ditolak, dan row tidak boleh berubah
	resp := f.request(t, http.MethodPut, path, body, f.other.UserID, `["teacher"]`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var untouched model.ClassLogModel
	require.NoError(t, f.db.First(&untouched, "class_log_id = ?", logRow.ClassLogID).Error)
	assert.Nil(t, untouched.ClassLogTime, "request yang ditolak tidak boleh memutasi row")

	// pemilik → boleh
	resp = f.request(t, http.MethodPut, path, body, f.teacher.UserID, `["teacher"]`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// admin dengan edit_all → boleh walau bukan pemilik
	resp = f.request(t, http.MethodPut, path, fiber.Map{"class_log_time": "siang 13:00"}, f.other.UserID, `["admin"]`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got model.ClassLogModel
	require.NoError(t, f.db.First(&got, "class_log_id = ?", logRow.ClassLogID).Error)
	require.NotNil(t, got.ClassLogTime)
	assert.Equal(t, "siang 13:00", *got.ClassLogTime)
}

func TestDeleteClassLogOwnershipGate(t *testing.T) {
	f := newFixture(t)
	logRow := f.seedLog(t, f.teacher.UserID)
	path := fmt.Sprintf("/class-logs/%s", logRow.ClassLogID)

	resp := f.request(t, http.MethodDelete, path, nil, f.other.UserID, `["teacher"]`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// row dan fotonya harus masih utuh setelah delete yang ditolak
	var count int64
	f.db.Model(&model.ClassLogModel{}).Where("class_log_id = ?", logRow.ClassLogID).Count(&count)
	require.Equal(t, int64(1), count, "delete yang ditolak tidak boleh menghapus row")
	f.db.Model(&model.ClassLogPhotoModel{}).Where("class_log_photo_class_log_id = ?", logRow.ClassLogID).Count(&count)
	require.Equal(t, int64(2), count)

	resp = f.request(t, http.MethodDelete, path, nil, f.teacher.UserID, `["teacher"]`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	f.db.Model(&model.ClassLogModel{}).Where("class_log_id = ?", logRow.ClassLogID).Count(&count)
	assert.Zero(t, count, "row sudah soft-deleted")

	// foto ikut terhapus
	f.db.Model(&model.ClassLogPhotoModel{}).Where("class_log_photo_class_log_id = ?", logRow.ClassLogID).Count(&count)
	assert.Zero(t, count)
}

/* =========================================================
   Photo replacement → verdict AI batal
========================================================= */

func TestReplacePhotosInvalidatesAIFields(t *testing.T) {
	f := newFixture(t)
	logRow := f.seedLog(t, f.teacher.UserID)

	// seed verdict lama
	match := model.MatchHigh
	kids := 10
	now := time.Now()
	require.NoError(t, f.db.Model(&model.ClassLogModel{}).
		Where("class_log_id = ?", logRow.ClassLogID).
		Updates(map[string]interface{}{
			"class_log_ai_orphanage_match": match,
			"class_log_ai_kids_count":      kids,
			"class_log_ai_analyzed_at":     now,
		}).Error)

	body := fiber.Map{
		"photos": []fiber.Map{
			{"url": "https://cdn.example.com/new1.webp", "sort_order": 0},
		},
	}
	resp := f.request(t, http.MethodPut, fmt.Sprintf("/class-logs/%s", logRow.ClassLogID), body, f.teacher.UserID, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got model.ClassLogModel
	require.NoError(t, f.db.Preload("Photos").First(&got, "class_log_id = ?", logRow.ClassLogID).Error)

	// verdict lama hilang total (bukan sebagian)
	assert.Nil(t, got.ClassLogAIOrphanageMatch)
	assert.Nil(t, got.ClassLogAIKidsCount)
	assert.Nil(t, got.ClassLogAIAnalyzedAt)

	// foto lama diganti semua
	require.Len(t, got.Photos, 1)
	assert.Equal(t, "https://cdn.example.com/new1.webp", got.Photos[0].ClassLogPhotoURL)
}

// Edit field biasa (tanpa photos) TIDAK menggugurkan verdict.
func TestEditWithoutPhotosKeepsAIFields(t *testing.T) {
	f := newFixture(t)
	logRow := f.seedLog(t, f.teacher.UserID)

	match := model.MatchLikely
	require.NoError(t, f.db.Model(&model.ClassLogModel{}).
		Where("class_log_id = ?", logRow.ClassLogID).
		Update("class_log_ai_orphanage_match", match).Error)

	body := fiber.Map{"class_log_student_count": 9}
	resp := f.request(t, http.MethodPut, fmt.Sprintf("/class-logs/%s", logRow.ClassLogID), body, f.teacher.UserID, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got model.ClassLogModel
	require.NoError(t, f.db.First(&got, "class_log_id = ?", logRow.ClassLogID).Error)
	require.NotNil(t, got.ClassLogAIOrphanageMatch)
	assert.Equal(t, model.MatchLikely, *got.ClassLogAIOrphanageMatch)
	require.NotNil(t, got.ClassLogStudentCount)
	assert.Equal(t, 9, *got.ClassLogStudentCount)
}

/* =========================================================
   Re-analyze
========================================================= */

func TestReanalyzeRequiresPermission(t *testing.T) {
	f := newFixture(t)
	logRow := f.seedLog(t, f.teacher.UserID)
	path := fmt.Sprintf("/class-logs/%s/reanalyze", logRow.ClassLogID)

	resp := f.request(t, http.MethodPost, path, nil, f.teacher.UserID, `["donor"]`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = f.request(t, http.MethodPost, path, nil, f.teacher.UserID, `["admin"]`)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}
