package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserModel struct {
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`

	UserName  string `gorm:"column:user_name;type:varchar(100);not null" json:"user_name"`
	UserEmail string `gorm:"column:user_email;type:varchar(255);not null;uniqueIndex" json:"user_email"`

	// daftar role sebagai JSON array string, mis. ["teacher"] / ["admin","manager"]
	UserRoles datatypes.JSON `gorm:"column:user_roles;type:jsonb;not null;default:'[]'" json:"user_roles"`

	UserIsActive bool `gorm:"column:user_is_active;not null;default:true" json:"user_is_active"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
}

func (UserModel) TableName() string {
	return "users"
}

// BeforeCreate: set ID jika kosong
func (m *UserModel) BeforeCreate(tx *gorm.DB) error {
	if m.UserID == uuid.Nil {
		m.UserID = uuid.New()
	}
	return nil
}
