package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Foto bukti kelas. Urutan sort_order dari client; foto pertama = cover.
type ClassLogPhotoModel struct {
	ClassLogPhotoID uuid.UUID `gorm:"column:class_log_photo_id;type:uuid;primaryKey" json:"class_log_photo_id"`

	ClassLogPhotoClassLogID uuid.UUID `gorm:"column:class_log_photo_class_log_id;type:uuid;not null;index" json:"class_log_photo_class_log_id"`

	ClassLogPhotoURL       string `gorm:"column:class_log_photo_url;type:text;not null" json:"class_log_photo_url"`
	ClassLogPhotoCaption   string `gorm:"column:class_log_photo_caption;type:varchar(255)" json:"class_log_photo_caption"`
	ClassLogPhotoSortOrder int    `gorm:"column:class_log_photo_sort_order;not null;default:0" json:"class_log_photo_sort_order"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	ClassLog *ClassLogModel `gorm:"foreignKey:ClassLogPhotoClassLogID;references:ClassLogID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ClassLogPhotoModel) TableName() string {
	return "class_log_photos"
}

// BeforeCreate: set ID jika kosong
func (m *ClassLogPhotoModel) BeforeCreate(tx *gorm.DB) error {
	if m.ClassLogPhotoID == uuid.Nil {
		m.ClassLogPhotoID = uuid.New()
	}
	return nil
}
