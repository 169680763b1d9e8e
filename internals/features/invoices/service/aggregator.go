package service

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"pantiku_backend/internals/configs"
	"pantiku_backend/internals/features/invoices/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const jobNameGenerateInvoice = "generate_monthly_invoice"

// InvoiceAggregator: rekap class log bulan sebelumnya jadi satu invoice.
// Nomor invoice (INV-YYYY-MM) adalah idempotency key: kalau sudah ada,
// invoice lama dikembalikan apa adanya tanpa menulis apa pun.
type InvoiceAggregator struct {
	DB *gorm.DB

	// RatePerClass dalam minor units (mis. sen), RateCurrency lowercase.
	RatePerClass int64
	RateCurrency string
}

func NewInvoiceAggregator(db *gorm.DB) *InvoiceAggregator {
	rate, err := strconv.ParseInt(configs.GetEnv("INVOICE_RATE_PER_CLASS", "5000000"), 10, 64)
	if err != nil || rate <= 0 {
		log.Printf("[WARN] INVOICE_RATE_PER_CLASS tidak valid, pakai default 5000000")
		rate = 5000000
	}
	return &InvoiceAggregator{
		DB:           db,
		RatePerClass: rate,
		RateCurrency: strings.ToLower(configs.GetEnv("INVOICE_CURRENCY", "idr")),
	}
}

type orphanageClassCount struct {
	OrphanageID string `gorm:"column:class_log_orphanage_id"`
	ClassCount  int    `gorm:"column:class_count"`
}

// InvoiceNumberFor: nomor deterministik untuk periode yang memuat t.
func InvoiceNumberFor(t time.Time) string {
	return fmt.Sprintf("INV-%04d-%02d", t.Year(), int(t.Month()))
}

// GenerateForPreviousMonth membuat invoice untuk bulan kalender sebelum now.
// Return (invoice, generated): generated=false berarti nomor sudah ada dan
// tidak ada baris baru yang ditulis. Setiap invokasi tercatat di job_runs.
func (a *InvoiceAggregator) GenerateForPreviousMonth(now time.Time) (*model.InvoiceModel, bool, error) {
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodStart := firstOfThisMonth.AddDate(0, -1, 0)
	periodEnd := firstOfThisMonth.AddDate(0, 0, -1) // hari terakhir bulan lalu, inklusif

	invoice, generated, err := a.generate(periodStart, periodEnd)
	a.recordRun(invoice, generated, err)
	return invoice, generated, err
}

func (a *InvoiceAggregator) generate(periodStart, periodEnd time.Time) (*model.InvoiceModel, bool, error) {
	number := InvoiceNumberFor(periodStart)

	var existing model.InvoiceModel
	err := a.DB.Preload("LineItems").
		Where("invoice_number = ?", number).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	var counts []orphanageClassCount
	if err := a.DB.Table("class_logs").
		Select("class_log_orphanage_id, COUNT(*) AS class_count").
		Where("class_log_date >= ? AND class_log_date <= ?", periodStart, periodEnd).
		Where("deleted_at IS NULL").
		Group("class_log_orphanage_id").
		Order("class_log_orphanage_id").
		Scan(&counts).Error; err != nil {
		return nil, false, err
	}

	invoice := &model.InvoiceModel{
		InvoiceNumber:       number,
		InvoicePeriodStart:  periodStart,
		InvoicePeriodEnd:    periodEnd,
		InvoiceRatePerClass: a.RatePerClass,
		InvoiceCurrency:     a.RateCurrency,
	}
	for _, c := range counts {
		orphanageID, err := uuid.Parse(c.OrphanageID)
		if err != nil {
			return nil, false, fmt.Errorf("orphanage id tidak valid di class_logs: %w", err)
		}
		subtotal := int64(c.ClassCount) * a.RatePerClass
		invoice.LineItems = append(invoice.LineItems, model.InvoiceLineItemModel{
			InvoiceLineItemOrphanageID: orphanageID,
			InvoiceLineItemClassCount:  c.ClassCount,
			InvoiceLineItemRate:        a.RatePerClass,
			InvoiceLineItemSubtotal:    subtotal,
		})
		invoice.InvoiceTotalClasses += c.ClassCount
		invoice.InvoiceTotalAmount += subtotal
	}

	// invoice + line items dalam satu transaksi (association create)
	if err := a.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(invoice).Error
	}); err != nil {
		return nil, false, err
	}

	log.Printf("✅ Invoice %s dibuat: %d kelas, total %d %s",
		number, invoice.InvoiceTotalClasses, invoice.InvoiceTotalAmount, invoice.InvoiceCurrency)
	return invoice, true, nil
}

// recordRun: audit tiap invokasi, sukses maupun gagal. Best-effort.
func (a *InvoiceAggregator) recordRun(invoice *model.InvoiceModel, generated bool, runErr error) {
	run := model.JobRunModel{JobRunName: jobNameGenerateInvoice}
	switch {
	case runErr != nil:
		run.JobRunStatus = model.JobRunFailed
		run.JobRunMessage = runErr.Error()
	case !generated:
		run.JobRunStatus = model.JobRunSkipped
		run.JobRunMessage = fmt.Sprintf("invoice %s sudah ada", invoice.InvoiceNumber)
	default:
		run.JobRunStatus = model.JobRunSuccess
		run.JobRunMessage = fmt.Sprintf("invoice %s dibuat (%d kelas)", invoice.InvoiceNumber, invoice.InvoiceTotalClasses)
	}
	if err := a.DB.Create(&run).Error; err != nil {
		log.Printf("[WARN] gagal mencatat job run %s: %v", jobNameGenerateInvoice, err)
	}
}
