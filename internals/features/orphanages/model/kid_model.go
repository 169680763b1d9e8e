package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KidModel struct {
	KidID uuid.UUID `gorm:"column:kid_id;type:uuid;primaryKey" json:"kid_id"`

	KidOrphanageID uuid.UUID `gorm:"column:kid_orphanage_id;type:uuid;not null;index" json:"kid_orphanage_id"`

	KidName      string     `gorm:"column:kid_name;type:varchar(100);not null" json:"kid_name"`
	KidNickname  string     `gorm:"column:kid_nickname;type:varchar(50)" json:"kid_nickname"`
	KidBirthDate *time.Time `gorm:"column:kid_birth_date;type:date" json:"kid_birth_date,omitempty"`
	KidNotes     string     `gorm:"column:kid_notes;type:text" json:"kid_notes"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`

	Orphanage *OrphanageModel `gorm:"foreignKey:KidOrphanageID;references:OrphanageID;constraint:OnDelete:CASCADE" json:"-"`
}

func (KidModel) TableName() string {
	return "kids"
}

// BeforeCreate: set ID jika kosong
func (m *KidModel) BeforeCreate(tx *gorm.DB) error {
	if m.KidID == uuid.Nil {
		m.KidID = uuid.New()
	}
	return nil
}
