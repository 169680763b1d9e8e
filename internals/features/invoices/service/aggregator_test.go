package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	classlogModel "pantiku_backend/internals/features/classlogs/model"
	"pantiku_backend/internals/features/invoices/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&classlogModel.ClassLogModel{},
		&classlogModel.ClassLogPhotoModel{},
		&model.InvoiceModel{},
		&model.InvoiceLineItemModel{},
		&model.JobRunModel{},
	))
	return db
}

func newTestAggregator(db *gorm.DB) *InvoiceAggregator {
	return &InvoiceAggregator{DB: db, RatePerClass: 5000000, RateCurrency: "idr"}
}

func seedClassLog(t *testing.T, db *gorm.DB, orphanageID uuid.UUID, date time.Time) *classlogModel.ClassLogModel {
	t.Helper()
	m := &classlogModel.ClassLogModel{
		ClassLogOrphanageID: orphanageID,
		ClassLogTeacherID:   uuid.New(),
		ClassLogDate:        date,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func TestGenerateForPreviousMonthAggregatesPerOrphanage(t *testing.T) {
	db := setupTestDB(t)
	agg := newTestAggregator(db)

	orphanageA := uuid.New()
	orphanageB := uuid.New()

	// Juli 2026 = periode yang akan ditagih
	seedClassLog(t, db, orphanageA, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	seedClassLog(t, db, orphanageA, time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC))
	seedClassLog(t, db, orphanageA, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)) // hari terakhir, inklusif
	seedClassLog(t, db, orphanageB, time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC))

	// di luar periode, tidak boleh ikut
	seedClassLog(t, db, orphanageA, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	seedClassLog(t, db, orphanageB, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	// soft-deleted juga tidak ikut
	deleted := seedClassLog(t, db, orphanageB, time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, db.Delete(deleted).Error)

	invoice, generated, err := agg.GenerateForPreviousMonth(time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, generated)

	assert.Equal(t, "INV-2026-07", invoice.InvoiceNumber)
	assert.Equal(t, 4, invoice.InvoiceTotalClasses)
	assert.Equal(t, int64(4*5000000), invoice.InvoiceTotalAmount)
	assert.Equal(t, "idr", invoice.InvoiceCurrency)

	require.Len(t, invoice.LineItems, 2)
	bySubject := map[uuid.UUID]model.InvoiceLineItemModel{}
	for _, li := range invoice.LineItems {
		bySubject[li.InvoiceLineItemOrphanageID] = li
	}
	assert.Equal(t, 3, bySubject[orphanageA].InvoiceLineItemClassCount)
	assert.Equal(t, int64(15000000), bySubject[orphanageA].InvoiceLineItemSubtotal)
	assert.Equal(t, 1, bySubject[orphanageB].InvoiceLineItemClassCount)
	assert.Equal(t, int64(5000000), bySubject[orphanageB].InvoiceLineItemSubtotal)
}

func TestGenerateIsIdempotentPerInvoiceNumber(t *testing.T) {
	db := setupTestDB(t)
	agg := newTestAggregator(db)

	orphanage := uuid.New()
	seedClassLog(t, db, orphanage, time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC))

	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	first, generated, err := agg.GenerateForPreviousMonth(now)
	require.NoError(t, err)
	require.True(t, generated)

	// log baru setelah invoice terbit TIDAK mengubah invoice yang sudah ada
	seedClassLog(t, db, orphanage, time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC))

	second, generated, err := agg.GenerateForPreviousMonth(now)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, first.InvoiceID, second.InvoiceID)
	assert.Equal(t, first.InvoiceTotalClasses, second.InvoiceTotalClasses)
	assert.Equal(t, first.InvoiceTotalAmount, second.InvoiceTotalAmount)

	var invoiceCount, lineItemCount int64
	require.NoError(t, db.Model(&model.InvoiceModel{}).Count(&invoiceCount).Error)
	require.NoError(t, db.Model(&model.InvoiceLineItemModel{}).Count(&lineItemCount).Error)
	assert.Equal(t, int64(1), invoiceCount)
	assert.Equal(t, int64(1), lineItemCount)
}

func TestGenerateRecordsJobRunPerInvocation(t *testing.T) {
	db := setupTestDB(t)
	agg := newTestAggregator(db)

	seedClassLog(t, db, uuid.New(), time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC))

	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	_, _, err := agg.GenerateForPreviousMonth(now)
	require.NoError(t, err)
	_, _, err = agg.GenerateForPreviousMonth(now)
	require.NoError(t, err)

	var runs []model.JobRunModel
	require.NoError(t, db.Order("created_at asc").Find(&runs).Error)
	require.Len(t, runs, 2)
	assert.Equal(t, model.JobRunSuccess, runs[0].JobRunStatus)
	assert.Equal(t, model.JobRunSkipped, runs[1].JobRunStatus)
	assert.Contains(t, runs[1].JobRunMessage, "INV-2026-07")
}

func TestGenerateEmptyPeriodStillCreatesInvoice(t *testing.T) {
	db := setupTestDB(t)
	agg := newTestAggregator(db)

	invoice, generated, err := agg.GenerateForPreviousMonth(time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Equal(t, 0, invoice.InvoiceTotalClasses)
	assert.Equal(t, int64(0), invoice.InvoiceTotalAmount)
	assert.Empty(t, invoice.LineItems)
}

func TestInvoiceNumberFor(t *testing.T) {
	assert.Equal(t, "INV-2026-01", InvoiceNumberFor(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "INV-2025-12", InvoiceNumberFor(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
}
