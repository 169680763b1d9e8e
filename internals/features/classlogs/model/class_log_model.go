package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Verdict kecocokan lokasi/tanggal hasil analisis foto.
const (
	MatchHigh      = "high"
	MatchLikely    = "likely"
	MatchUncertain = "uncertain"
	MatchUnlikely  = "unlikely"
)

type ClassLogModel struct {
	ClassLogID uuid.UUID `gorm:"column:class_log_id;type:uuid;primaryKey" json:"class_log_id"`

	ClassLogOrphanageID uuid.UUID `gorm:"column:class_log_orphanage_id;type:uuid;not null;index" json:"class_log_orphanage_id"`
	ClassLogTeacherID   uuid.UUID `gorm:"column:class_log_teacher_id;type:uuid;not null;index" json:"class_log_teacher_id"`

	ClassLogDate         time.Time `gorm:"column:class_log_date;type:date;not null;index" json:"class_log_date"`
	ClassLogTime         *string   `gorm:"column:class_log_time;type:varchar(50)" json:"class_log_time,omitempty"`
	ClassLogStudentCount *int      `gorm:"column:class_log_student_count;check:class_log_student_count >= 0" json:"class_log_student_count,omitempty"`

	// ===== AI verdict fields =====
	// Semuanya nullable; terisi bersamaan dalam satu update atomik setelah
	// analisis background selesai. Replace foto → semua di-null-kan lagi.
	ClassLogAIKidsCount       *int       `gorm:"column:class_log_ai_kids_count" json:"class_log_ai_kids_count,omitempty"`
	ClassLogAILocation        *string    `gorm:"column:class_log_ai_location;type:text" json:"class_log_ai_location,omitempty"`
	ClassLogAIPhotoTimestamp  *string    `gorm:"column:class_log_ai_photo_timestamp;type:text" json:"class_log_ai_photo_timestamp,omitempty"`
	ClassLogAIOrphanageMatch  *string    `gorm:"column:class_log_ai_orphanage_match;type:varchar(20)" json:"class_log_ai_orphanage_match,omitempty"`
	ClassLogAIConfidenceNotes *string    `gorm:"column:class_log_ai_confidence_notes;type:text" json:"class_log_ai_confidence_notes,omitempty"`
	ClassLogAIGPSDistanceM    *float64   `gorm:"column:class_log_ai_gps_distance_m" json:"class_log_ai_gps_distance_m,omitempty"`
	ClassLogAIDateMatch       *string    `gorm:"column:class_log_ai_date_match;type:varchar(20)" json:"class_log_ai_date_match,omitempty"`
	ClassLogAITimeMatch       *string    `gorm:"column:class_log_ai_time_match;type:varchar(20)" json:"class_log_ai_time_match,omitempty"`
	ClassLogExifDateTaken     *string    `gorm:"column:class_log_exif_date_taken;type:varchar(40)" json:"class_log_exif_date_taken,omitempty"`
	ClassLogAIAnalyzedAt      *time.Time `gorm:"column:class_log_ai_analyzed_at" json:"class_log_ai_analyzed_at,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`

	Photos []ClassLogPhotoModel `gorm:"foreignKey:ClassLogPhotoClassLogID;references:ClassLogID" json:"photos,omitempty"`
}

func (ClassLogModel) TableName() string {
	return "class_logs"
}

// BeforeCreate: set ID jika kosong
func (m *ClassLogModel) BeforeCreate(tx *gorm.DB) error {
	if m.ClassLogID == uuid.Nil {
		m.ClassLogID = uuid.New()
	}
	return nil
}

// AIFieldsNulled: map kolom AI → nil, dipakai saat photo replacement
// membatalkan verdict lama.
func AIFieldsNulled() map[string]interface{} {
	return map[string]interface{}{
		"class_log_ai_kids_count":       nil,
		"class_log_ai_location":         nil,
		"class_log_ai_photo_timestamp":  nil,
		"class_log_ai_orphanage_match":  nil,
		"class_log_ai_confidence_notes": nil,
		"class_log_ai_gps_distance_m":   nil,
		"class_log_ai_date_match":       nil,
		"class_log_ai_time_match":       nil,
		"class_log_exif_date_taken":     nil,
		"class_log_ai_analyzed_at":      nil,
	}
}
