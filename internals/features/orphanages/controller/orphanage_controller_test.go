package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"pantiku_backend/internals/features/orphanages/model"
)

type fixture struct {
	app  *fiber.App
	db   *gorm.DB
	ctrl *OrphanageController
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.OrphanageModel{}, &model.KidModel{}))

	// Geocoder sengaja nil-safe: test tidak menyentuh network, jadi pakai
	// client default yang hanya dipanggil di background goroutine.
	ctrl := &OrphanageController{DB: db, Validate: validator.New()}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		var roles []string
		if r := c.Get("X-Test-Roles"); r != "" {
			_ = json.Unmarshal([]byte(r), &roles)
		}
		c.Locals("roles", roles)
		return c.Next()
	})
	app.Post("/orphanages", ctrl.CreateOrphanage)
	app.Patch("/orphanages/:id", ctrl.UpdateOrphanage)
	app.Get("/orphanages/:id/kids", ctrl.GetKidsByOrphanage)
	app.Post("/orphanages/:id/kids", ctrl.CreateKid)
	app.Put("/orphanages/kids/:kid_id", ctrl.UpdateKid)
	app.Delete("/orphanages/kids/:kid_id", ctrl.DeleteKid)

	return &fixture{app: app, db: db, ctrl: ctrl}
}

func (f *fixture) request(t *testing.T, method, path string, body interface{}, roles string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if roles != "" {
		req.Header.Set("X-Test-Roles", roles)
	}
	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func (f *fixture) seedOrphanage(t *testing.T) *model.OrphanageModel {
	t.Helper()
	m := &model.OrphanageModel{
		OrphanageName:     "Panti Harapan",
		OrphanageSlug:     "panti-harapan",
		OrphanageAddress:  "Jl. Anggrek 5, Bandung",
		OrphanageIsActive: true,
	}
	require.NoError(t, f.db.Create(m).Error)
	return m
}

func TestCreateOrphanageRequiresPermission(t *testing.T) {
	f := newFixture(t)

	body := map[string]interface{}{"orphanage_name": "Panti Baru"}
	resp := f.request(t, http.MethodPost, "/orphanages", body, `["teacher"]`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = f.request(t, http.MethodPost, "/orphanages", body, `["admin"]`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var m model.OrphanageModel
	require.NoError(t, f.db.First(&m, "orphanage_name = ?", "Panti Baru").Error)
	assert.Equal(t, "panti-baru", m.OrphanageSlug)
	assert.True(t, m.OrphanageIsActive)
}

func TestCreateOrphanageSlugUnique(t *testing.T) {
	f := newFixture(t)

	body := map[string]interface{}{"orphanage_name": "Panti Kasih"}
	resp := f.request(t, http.MethodPost, "/orphanages", body, `["admin"]`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp = f.request(t, http.MethodPost, "/orphanages", body, `["admin"]`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var slugs []string
	require.NoError(t, f.db.Model(&model.OrphanageModel{}).Order("created_at asc").Pluck("orphanage_slug", &slugs).Error)
	assert.Equal(t, []string{"panti-kasih", "panti-kasih-2"}, slugs)
}

func TestUpdateAddressResetsCoordinates(t *testing.T) {
	f := newFixture(t)
	m := f.seedOrphanage(t)

	lat, lng := -6.9, 107.6
	require.NoError(t, f.db.Model(m).Updates(map[string]interface{}{
		"orphanage_latitude":  lat,
		"orphanage_longitude": lng,
	}).Error)

	body := map[string]interface{}{"orphanage_address": "Jl. Baru 10, Bandung"}
	resp := f.request(t, http.MethodPatch, "/orphanages/"+m.OrphanageID.String(), body, `["manager"]`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var after model.OrphanageModel
	require.NoError(t, f.db.First(&after, "orphanage_id = ?", m.OrphanageID).Error)
	assert.Equal(t, "Jl. Baru 10, Bandung", after.OrphanageAddress)
	assert.Nil(t, after.OrphanageLatitude)
	assert.Nil(t, after.OrphanageLongitude)
}

func TestKidRosterLifecycle(t *testing.T) {
	f := newFixture(t)
	m := f.seedOrphanage(t)

	// tambah
	body := map[string]interface{}{
		"kid_name":       "Andi",
		"kid_birth_date": "2015-04-20",
	}
	resp := f.request(t, http.MethodPost, "/orphanages/"+m.OrphanageID.String()+"/kids", body, `["admin"]`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var kid model.KidModel
	require.NoError(t, f.db.First(&kid, "kid_name = ?", "Andi").Error)
	require.NotNil(t, kid.KidBirthDate)
	assert.Equal(t, 2015, kid.KidBirthDate.Year())

	// ubah
	update := map[string]interface{}{"kid_nickname": "Ndi"}
	resp = f.request(t, http.MethodPut, "/orphanages/kids/"+kid.KidID.String(), update, `["admin"]`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, f.db.First(&kid, "kid_id = ?", kid.KidID).Error)
	assert.Equal(t, "Ndi", kid.KidNickname)

	// hapus (soft delete)
	resp = f.request(t, http.MethodDelete, "/orphanages/kids/"+kid.KidID.String(), nil, `["admin"]`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var visible int64
	require.NoError(t, f.db.Model(&model.KidModel{}).Where("kid_orphanage_id = ?", m.OrphanageID).Count(&visible).Error)
	assert.Equal(t, int64(0), visible)

	var total int64
	require.NoError(t, f.db.Unscoped().Model(&model.KidModel{}).Where("kid_orphanage_id = ?", m.OrphanageID).Count(&total).Error)
	assert.Equal(t, int64(1), total)
}

func TestCreateKidUnknownOrphanage(t *testing.T) {
	f := newFixture(t)

	body := map[string]interface{}{"kid_name": "Andi"}
	resp := f.request(t, http.MethodPost, "/orphanages/00000000-0000-0000-0000-000000000001/kids", body, `["admin"]`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
