package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"pantiku_backend/internals/features/orphanages/model"
)

/* =========================================================
   CREATE
========================================================= */

type CreateOrphanageRequest struct {
	OrphanageName         string `json:"orphanage_name" validate:"required,min=3,max=150"`
	OrphanageAddress      string `json:"orphanage_address" validate:"omitempty,max=500"`
	OrphanageContactName  string `json:"orphanage_contact_name" validate:"omitempty,max=100"`
	OrphanageContactPhone string `json:"orphanage_contact_phone" validate:"omitempty,max=30"`
}

func (r *CreateOrphanageRequest) ToModel(slug string) *model.OrphanageModel {
	return &model.OrphanageModel{
		OrphanageName:         strings.TrimSpace(r.OrphanageName),
		OrphanageSlug:         slug,
		OrphanageAddress:      strings.TrimSpace(r.OrphanageAddress),
		OrphanageContactName:  strings.TrimSpace(r.OrphanageContactName),
		OrphanageContactPhone: strings.TrimSpace(r.OrphanageContactPhone),
		OrphanageIsActive:     true,
	}
}

/* =========================================================
   UPDATE (partial: nil = tidak diubah)
========================================================= */

type UpdateOrphanageRequest struct {
	OrphanageName         *string `json:"orphanage_name" validate:"omitempty,min=3,max=150"`
	OrphanageAddress      *string `json:"orphanage_address" validate:"omitempty,max=500"`
	OrphanageContactName  *string `json:"orphanage_contact_name" validate:"omitempty,max=100"`
	OrphanageContactPhone *string `json:"orphanage_contact_phone" validate:"omitempty,max=30"`
	OrphanageIsActive     *bool   `json:"orphanage_is_active"`
}

func (r *UpdateOrphanageRequest) Apply(m *model.OrphanageModel) (addressChanged bool) {
	if r.OrphanageName != nil {
		m.OrphanageName = strings.TrimSpace(*r.OrphanageName)
	}
	if r.OrphanageAddress != nil {
		next := strings.TrimSpace(*r.OrphanageAddress)
		if next != m.OrphanageAddress {
			addressChanged = true
			// alamat berubah → koordinat lama tidak valid lagi
			m.OrphanageLatitude = nil
			m.OrphanageLongitude = nil
		}
		m.OrphanageAddress = next
	}
	if r.OrphanageContactName != nil {
		m.OrphanageContactName = strings.TrimSpace(*r.OrphanageContactName)
	}
	if r.OrphanageContactPhone != nil {
		m.OrphanageContactPhone = strings.TrimSpace(*r.OrphanageContactPhone)
	}
	if r.OrphanageIsActive != nil {
		m.OrphanageIsActive = *r.OrphanageIsActive
	}
	return addressChanged
}

/* =========================================================
   KIDS
========================================================= */

type CreateKidRequest struct {
	KidName      string `json:"kid_name" validate:"required,min=2,max=100"`
	KidNickname  string `json:"kid_nickname" validate:"omitempty,max=50"`
	KidBirthDate string `json:"kid_birth_date" validate:"omitempty,datetime=2006-01-02"`
	KidNotes     string `json:"kid_notes" validate:"omitempty,max=2000"`
}

func (r *CreateKidRequest) ToModel(orphanageID uuid.UUID) *model.KidModel {
	m := &model.KidModel{
		KidOrphanageID: orphanageID,
		KidName:        strings.TrimSpace(r.KidName),
		KidNickname:    strings.TrimSpace(r.KidNickname),
		KidNotes:       strings.TrimSpace(r.KidNotes),
	}
	if r.KidBirthDate != "" {
		if bd, err := time.Parse("2006-01-02", r.KidBirthDate); err == nil {
			m.KidBirthDate = &bd
		}
	}
	return m
}

type UpdateKidRequest struct {
	KidName      *string `json:"kid_name" validate:"omitempty,min=2,max=100"`
	KidNickname  *string `json:"kid_nickname" validate:"omitempty,max=50"`
	KidBirthDate *string `json:"kid_birth_date" validate:"omitempty,datetime=2006-01-02"`
	KidNotes     *string `json:"kid_notes" validate:"omitempty,max=2000"`
}

func (r *UpdateKidRequest) Apply(m *model.KidModel) {
	if r.KidName != nil {
		m.KidName = strings.TrimSpace(*r.KidName)
	}
	if r.KidNickname != nil {
		m.KidNickname = strings.TrimSpace(*r.KidNickname)
	}
	if r.KidBirthDate != nil {
		if *r.KidBirthDate == "" {
			m.KidBirthDate = nil
		} else if bd, err := time.Parse("2006-01-02", *r.KidBirthDate); err == nil {
			m.KidBirthDate = &bd
		}
	}
	if r.KidNotes != nil {
		m.KidNotes = strings.TrimSpace(*r.KidNotes)
	}
}
