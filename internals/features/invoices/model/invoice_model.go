package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceModel: agregat tagihan bulanan. invoice_number deterministik dari
// tahun+bulan (INV-YYYY-MM) dan SEKALIGUS idempotency key — paling banyak
// satu invoice per nomor, regenerate bulan yang sama = no-op.
type InvoiceModel struct {
	InvoiceID uuid.UUID `gorm:"column:invoice_id;type:uuid;primaryKey" json:"invoice_id"`

	InvoiceNumber      string    `gorm:"column:invoice_number;type:varchar(20);not null;uniqueIndex" json:"invoice_number"`
	InvoicePeriodStart time.Time `gorm:"column:invoice_period_start;type:date;not null" json:"invoice_period_start"`
	InvoicePeriodEnd   time.Time `gorm:"column:invoice_period_end;type:date;not null" json:"invoice_period_end"`

	InvoiceTotalClasses int   `gorm:"column:invoice_total_classes;not null" json:"invoice_total_classes"`
	InvoiceRatePerClass int64 `gorm:"column:invoice_rate_per_class;not null" json:"invoice_rate_per_class"` // minor units
	InvoiceTotalAmount  int64 `gorm:"column:invoice_total_amount;not null" json:"invoice_total_amount"`

	InvoiceCurrency string `gorm:"column:invoice_currency;type:varchar(10);not null" json:"invoice_currency"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	LineItems []InvoiceLineItemModel `gorm:"foreignKey:InvoiceLineItemInvoiceID;references:InvoiceID" json:"line_items,omitempty"`
}

func (InvoiceModel) TableName() string {
	return "invoices"
}

// BeforeCreate: set ID jika kosong
func (m *InvoiceModel) BeforeCreate(tx *gorm.DB) error {
	if m.InvoiceID == uuid.Nil {
		m.InvoiceID = uuid.New()
	}
	return nil
}

// InvoiceLineItemModel: satu baris per orphanage yang punya kelas di periode.
type InvoiceLineItemModel struct {
	InvoiceLineItemID uuid.UUID `gorm:"column:invoice_line_item_id;type:uuid;primaryKey" json:"invoice_line_item_id"`

	InvoiceLineItemInvoiceID   uuid.UUID `gorm:"column:invoice_line_item_invoice_id;type:uuid;not null;index" json:"invoice_line_item_invoice_id"`
	InvoiceLineItemOrphanageID uuid.UUID `gorm:"column:invoice_line_item_orphanage_id;type:uuid;not null" json:"invoice_line_item_orphanage_id"`

	InvoiceLineItemClassCount int   `gorm:"column:invoice_line_item_class_count;not null" json:"invoice_line_item_class_count"`
	InvoiceLineItemRate       int64 `gorm:"column:invoice_line_item_rate;not null" json:"invoice_line_item_rate"`
	InvoiceLineItemSubtotal   int64 `gorm:"column:invoice_line_item_subtotal;not null" json:"invoice_line_item_subtotal"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// BeforeCreate: set ID jika kosong
func (m *InvoiceLineItemModel) BeforeCreate(tx *gorm.DB) error {
	if m.InvoiceLineItemID == uuid.Nil {
		m.InvoiceLineItemID = uuid.New()
	}
	return nil
}
