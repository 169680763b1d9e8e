package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrphanageModel struct {
	OrphanageID uuid.UUID `gorm:"column:orphanage_id;type:uuid;primaryKey" json:"orphanage_id"`

	OrphanageName    string `gorm:"column:orphanage_name;type:varchar(150);not null" json:"orphanage_name"`
	OrphanageSlug    string `gorm:"column:orphanage_slug;type:varchar(160);not null;uniqueIndex" json:"orphanage_slug"`
	OrphanageAddress string `gorm:"column:orphanage_address;type:text" json:"orphanage_address"`

	// koordinat hasil geocoding (best-effort); null = belum/ gagal geocode
	OrphanageLatitude  *float64 `gorm:"column:orphanage_latitude" json:"orphanage_latitude,omitempty"`
	OrphanageLongitude *float64 `gorm:"column:orphanage_longitude" json:"orphanage_longitude,omitempty"`

	OrphanageContactName  string `gorm:"column:orphanage_contact_name;type:varchar(100)" json:"orphanage_contact_name"`
	OrphanageContactPhone string `gorm:"column:orphanage_contact_phone;type:varchar(30)" json:"orphanage_contact_phone"`

	OrphanageIsActive bool `gorm:"column:orphanage_is_active;not null;default:true" json:"orphanage_is_active"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
}

func (OrphanageModel) TableName() string {
	return "orphanages"
}

// BeforeCreate: set ID jika kosong
func (m *OrphanageModel) BeforeCreate(tx *gorm.DB) error {
	if m.OrphanageID == uuid.Nil {
		m.OrphanageID = uuid.New()
	}
	return nil
}
