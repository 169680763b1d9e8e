package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	JobRunSuccess = "success"
	JobRunSkipped = "skipped"
	JobRunFailed  = "failed"
)

// JobRunModel: audit trail per invokasi job (append-only).
type JobRunModel struct {
	JobRunID uuid.UUID `gorm:"column:job_run_id;type:uuid;primaryKey" json:"job_run_id"`

	JobRunName    string `gorm:"column:job_run_name;type:varchar(50);not null;index" json:"job_run_name"`
	JobRunStatus  string `gorm:"column:job_run_status;type:varchar(20);not null" json:"job_run_status"`
	JobRunMessage string `gorm:"column:job_run_message;type:text" json:"job_run_message"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (JobRunModel) TableName() string {
	return "job_runs"
}

// BeforeCreate: set ID jika kosong
func (m *JobRunModel) BeforeCreate(tx *gorm.DB) error {
	if m.JobRunID == uuid.Nil {
		m.JobRunID = uuid.New()
	}
	return nil
}
