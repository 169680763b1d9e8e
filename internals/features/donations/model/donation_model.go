package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider pembayaran yang dikenal ledger.
const (
	ProviderStripe   = "stripe"
	ProviderPayPal   = "paypal"
	ProviderMidtrans = "midtrans"
)

const (
	FrequencyOneTime = "one_time"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// Status donasi. completed → refunded|cancelled, keduanya terminal;
// tidak ada jalan kembali.
const (
	StatusCompleted = "completed"
	StatusRefunded  = "refunded"
	StatusCancelled = "cancelled"
)

// DonationModel: satu baris = satu payment event yang sudah terkonfirmasi
// (one-time charge, pembukaan subscription, atau renewal). Row tidak pernah
// dihapus fisik; refund/cancel hanya mengubah status.
//
// Dedup: provider+session id (checkout) ATAU provider+event id (renewal) —
// tidak pernah dua-duanya terisi untuk satu logical event.
type DonationModel struct {
	DonationID uuid.UUID `gorm:"column:donation_id;type:uuid;primaryKey" json:"donation_id"`

	DonationProvider          string  `gorm:"column:donation_provider;type:varchar(20);not null;index" json:"donation_provider"`
	DonationProviderSessionID *string `gorm:"column:donation_provider_session_id;type:varchar(255);uniqueIndex" json:"donation_provider_session_id,omitempty"`
	DonationProviderEventID   *string `gorm:"column:donation_provider_event_id;type:varchar(255);uniqueIndex" json:"donation_provider_event_id,omitempty"`
	DonationSubscriptionID    *string `gorm:"column:donation_subscription_id;type:varchar(255);index" json:"donation_subscription_id,omitempty"`

	DonationDonorEmail string `gorm:"column:donation_donor_email;type:varchar(255);index" json:"donation_donor_email"`
	DonationDonorName  string `gorm:"column:donation_donor_name;type:varchar(150)" json:"donation_donor_name"`

	DonationAmount   int64  `gorm:"column:donation_amount;not null" json:"donation_amount"` // minor units
	DonationCurrency string `gorm:"column:donation_currency;type:varchar(10);not null" json:"donation_currency"`

	DonationFrequency string `gorm:"column:donation_frequency;type:varchar(20);not null;default:'one_time'" json:"donation_frequency"`
	DonationStatus    string `gorm:"column:donation_status;type:varchar(20);not null;default:'completed';index" json:"donation_status"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (DonationModel) TableName() string {
	return "donations"
}

// AgeHours: umur row sejak tercatat, untuk heuristik pembayaran pertama
// subscription PayPal.
func (m *DonationModel) AgeHours() float64 {
	return time.Since(m.CreatedAt).Hours()
}

// BeforeCreate: set ID jika kosong
func (m *DonationModel) BeforeCreate(tx *gorm.DB) error {
	if m.DonationID == uuid.Nil {
		m.DonationID = uuid.New()
	}
	return nil
}
