package dto

import (
	"time"

	"github.com/google/uuid"

	"pantiku_backend/internals/features/classlogs/model"
)

/* =========================================================
   PHOTO (dipakai Create & replace di Update)
========================================================= */

type ClassLogPhotoInput struct {
	URL       string `json:"url" validate:"required,url"`
	Caption   string `json:"caption" validate:"omitempty,max=255"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

func toPhotoModels(classLogID uuid.UUID, photos []ClassLogPhotoInput) []model.ClassLogPhotoModel {
	out := make([]model.ClassLogPhotoModel, 0, len(photos))
	for i, p := range photos {
		sort := p.SortOrder
		if sort == 0 {
			sort = i
		}
		out = append(out, model.ClassLogPhotoModel{
			ClassLogPhotoClassLogID: classLogID,
			ClassLogPhotoURL:        p.URL,
			ClassLogPhotoCaption:    p.Caption,
			ClassLogPhotoSortOrder:  sort,
		})
	}
	return out
}

/* =========================================================
   CREATE
========================================================= */

type CreateClassLogRequest struct {
	ClassLogOrphanageID  uuid.UUID `json:"class_log_orphanage_id" validate:"required"`
	ClassLogDate         string    `json:"class_log_date" validate:"required"` // YYYY-MM-DD, diparse manual
	ClassLogTime         *string   `json:"class_log_time" validate:"omitempty,max=50"`
	ClassLogStudentCount *int      `json:"class_log_student_count" validate:"omitempty,gte=0"`

	Photos []ClassLogPhotoInput `json:"photos" validate:"required,min=1,dive"`

	// hint opsional dari upload endpoint (hasil EXIF foto pertama)
	ExifLatitude  *float64 `json:"exif_latitude" validate:"omitempty,gte=-90,lte=90"`
	ExifLongitude *float64 `json:"exif_longitude" validate:"omitempty,gte=-180,lte=180"`
	ExifDateTaken *string  `json:"exif_date_taken" validate:"omitempty,max=40"`
}

func (r *CreateClassLogRequest) ToModel(teacherID uuid.UUID, date time.Time) *model.ClassLogModel {
	m := &model.ClassLogModel{
		ClassLogID:           uuid.New(),
		ClassLogOrphanageID:  r.ClassLogOrphanageID,
		ClassLogTeacherID:    teacherID,
		ClassLogDate:         date,
		ClassLogTime:         r.ClassLogTime,
		ClassLogStudentCount: r.ClassLogStudentCount,
	}
	m.Photos = toPhotoModels(m.ClassLogID, r.Photos)
	return m
}

/* =========================================================
   UPDATE (partial: nil = tidak diubah; Photos non-nil =
   replace semua + verdict AI lama dibatalkan)
========================================================= */

type UpdateClassLogRequest struct {
	ClassLogDate         *string `json:"class_log_date" validate:"omitempty"`
	ClassLogTime         *string `json:"class_log_time" validate:"omitempty,max=50"`
	ClassLogStudentCount *int    `json:"class_log_student_count" validate:"omitempty,gte=0"`

	Photos *[]ClassLogPhotoInput `json:"photos" validate:"omitempty,min=1,dive"`

	ExifLatitude  *float64 `json:"exif_latitude" validate:"omitempty,gte=-90,lte=90"`
	ExifLongitude *float64 `json:"exif_longitude" validate:"omitempty,gte=-180,lte=180"`
	ExifDateTaken *string  `json:"exif_date_taken" validate:"omitempty,max=40"`
}

func (r *UpdateClassLogRequest) ReplacesPhotos() bool {
	return r.Photos != nil
}

func (r *UpdateClassLogRequest) NewPhotoModels(classLogID uuid.UUID) []model.ClassLogPhotoModel {
	if r.Photos == nil {
		return nil
	}
	return toPhotoModels(classLogID, *r.Photos)
}

/* =========================================================
   RESPONSE
========================================================= */

type ClassLogPhotoResponse struct {
	ClassLogPhotoID uuid.UUID `json:"class_log_photo_id"`
	URL             string    `json:"url"`
	Caption         string    `json:"caption"`
	SortOrder       int       `json:"sort_order"`
}

type ClassLogResponse struct {
	ClassLogID           uuid.UUID `json:"class_log_id"`
	ClassLogOrphanageID  uuid.UUID `json:"class_log_orphanage_id"`
	ClassLogTeacherID    uuid.UUID `json:"class_log_teacher_id"`
	ClassLogDate         string    `json:"class_log_date"`
	ClassLogTime         *string   `json:"class_log_time,omitempty"`
	ClassLogStudentCount *int      `json:"class_log_student_count,omitempty"`

	Photos []ClassLogPhotoResponse `json:"photos"`

	// verdict AI: semua null = belum dianalisis
	AIKidsCount       *int       `json:"ai_kids_count,omitempty"`
	AILocation        *string    `json:"ai_location,omitempty"`
	AIPhotoTimestamp  *string    `json:"ai_photo_timestamp,omitempty"`
	AIOrphanageMatch  *string    `json:"ai_orphanage_match,omitempty"`
	AIConfidenceNotes *string    `json:"ai_confidence_notes,omitempty"`
	AIGPSDistanceM    *float64   `json:"ai_gps_distance_m,omitempty"`
	AIDateMatch       *string    `json:"ai_date_match,omitempty"`
	AITimeMatch       *string    `json:"ai_time_match,omitempty"`
	ExifDateTaken     *string    `json:"exif_date_taken,omitempty"`
	AIAnalyzedAt      *time.Time `json:"ai_analyzed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToClassLogResponse(m *model.ClassLogModel) *ClassLogResponse {
	photos := make([]ClassLogPhotoResponse, 0, len(m.Photos))
	for _, p := range m.Photos {
		photos = append(photos, ClassLogPhotoResponse{
			ClassLogPhotoID: p.ClassLogPhotoID,
			URL:             p.ClassLogPhotoURL,
			Caption:         p.ClassLogPhotoCaption,
			SortOrder:       p.ClassLogPhotoSortOrder,
		})
	}
	return &ClassLogResponse{
		ClassLogID:           m.ClassLogID,
		ClassLogOrphanageID:  m.ClassLogOrphanageID,
		ClassLogTeacherID:    m.ClassLogTeacherID,
		ClassLogDate:         m.ClassLogDate.Format("2006-01-02"),
		ClassLogTime:         m.ClassLogTime,
		ClassLogStudentCount: m.ClassLogStudentCount,
		Photos:               photos,
		AIKidsCount:          m.ClassLogAIKidsCount,
		AILocation:           m.ClassLogAILocation,
		AIPhotoTimestamp:     m.ClassLogAIPhotoTimestamp,
		AIOrphanageMatch:     m.ClassLogAIOrphanageMatch,
		AIConfidenceNotes:    m.ClassLogAIConfidenceNotes,
		AIGPSDistanceM:       m.ClassLogAIGPSDistanceM,
		AIDateMatch:          m.ClassLogAIDateMatch,
		AITimeMatch:          m.ClassLogAITimeMatch,
		ExifDateTaken:        m.ClassLogExifDateTaken,
		AIAnalyzedAt:         m.ClassLogAIAnalyzedAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
