package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	helper "pantiku_backend/internals/helpers"
	helperAuth "pantiku_backend/internals/helpers/auth"
	"pantiku_backend/internals/helpers/oss"

	"pantiku_backend/internals/constants"
	"pantiku_backend/internals/features/invoices/model"
	"pantiku_backend/internals/features/invoices/service"
)

type InvoiceController struct {
	DB         *gorm.DB
	Aggregator *service.InvoiceAggregator
	OSS        *oss.OSSService
}

func NewInvoiceController(db *gorm.DB) *InvoiceController {
	ossSvc, err := oss.NewOSSServiceFromEnv("")
	if err != nil {
		log.Printf("[WARN] OSS tidak dikonfigurasi, arsip invoice nonaktif: %v", err)
		ossSvc = nil
	}
	return &InvoiceController{
		DB:         db,
		Aggregator: service.NewInvoiceAggregator(db),
		OSS:        ossSvc,
	}
}

// 🧾 GENERATE INVOICE BULAN LALU (idempoten per nomor invoice)
func (ctrl *InvoiceController) GenerateInvoice(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermInvoicesGenerate) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses generate invoice")
	}

	invoice, generated, err := ctrl.Aggregator.GenerateForPreviousMonth(time.Now().UTC())
	if err != nil {
		log.Printf("❌ Gagal generate invoice: %v", err)
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal generate invoice")
	}

	if !generated {
		return helper.Success(c, "Invoice untuk periode ini sudah ada", invoice)
	}

	// snapshot JSON ke OSS: best-effort, invoice di DB tetap sumber kebenaran
	if ctrl.OSS != nil {
		go ctrl.archiveInvoice(invoice)
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "Invoice berhasil dibuat", invoice)
}

// 📄 GET ALL INVOICES
func (ctrl *InvoiceController) GetAllInvoices(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermInvoicesGenerate) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses melihat invoice")
	}

	var list []model.InvoiceModel
	if err := ctrl.DB.Preload("LineItems").
		Order("invoice_period_start desc").
		Limit(100).
		Find(&list).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mengambil invoice")
	}
	return helper.Success(c, "OK", list)
}

// 🔍 GET INVOICE BY NUMBER
func (ctrl *InvoiceController) GetInvoiceByNumber(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermInvoicesGenerate) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses melihat invoice")
	}

	var invoice model.InvoiceModel
	if err := ctrl.DB.Preload("LineItems").
		Where("invoice_number = ?", c.Params("number")).
		First(&invoice).Error; err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Invoice tidak ditemukan")
	}
	return helper.Success(c, "OK", invoice)
}

// 📦 GET ARCHIVED SNAPSHOT (JSON dari OSS)
func (ctrl *InvoiceController) GetInvoiceArchive(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermInvoicesGenerate) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses melihat invoice")
	}
	if ctrl.OSS == nil {
		return helper.Error(c, fiber.StatusServiceUnavailable, "Arsip invoice belum dikonfigurasi")
	}

	data, err := ctrl.OSS.ReadObject(c.Context(), archiveKey(c.Params("number")))
	if err != nil {
		return helper.Error(c, fiber.StatusNotFound, "Arsip invoice tidak ditemukan")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// 🗂️ GET JOB RUNS (audit invokasi)
func (ctrl *InvoiceController) GetJobRuns(c *fiber.Ctx) error {
	if !helperAuth.HasPermission(helperAuth.GetRoles(c), constants.PermInvoicesGenerate) {
		return helper.Error(c, fiber.StatusForbidden, "Tidak punya akses melihat job run")
	}

	var runs []model.JobRunModel
	if err := ctrl.DB.Order("created_at desc").Limit(200).Find(&runs).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mengambil job run")
	}
	return helper.Success(c, "OK", runs)
}

/* =========================================================
   Internal
========================================================= */

func archiveKey(number string) string {
	return fmt.Sprintf("invoices/%s.json", number)
}

func (ctrl *InvoiceController) archiveInvoice(invoice *model.InvoiceModel) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] arsip invoice %s panic: %v", invoice.InvoiceNumber, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := json.Marshal(invoice)
	if err != nil {
		log.Printf("[ERROR] marshal arsip invoice %s: %v", invoice.InvoiceNumber, err)
		return
	}
	if err := ctrl.OSS.UploadStream(ctx, archiveKey(invoice.InvoiceNumber), bytes.NewReader(data), fiber.MIMEApplicationJSON); err != nil {
		log.Printf("[WARN] gagal arsip invoice %s ke OSS: %v", invoice.InvoiceNumber, err)
		return
	}
	log.Printf("📦 Invoice %s diarsipkan ke OSS", invoice.InvoiceNumber)
}
