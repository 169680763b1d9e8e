package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Status pemrosesan satu webhook masuk.
const (
	EventReceived   = "received"
	EventProcessed  = "processed"
	EventIgnored    = "ignored"
	EventDuplicated = "duplicated"
	EventFailed     = "failed"
)

// PaymentGatewayEventModel: audit trail semua webhook pembayaran yang masuk,
// apa pun hasilnya. Murni append-only untuk operasional/debugging; ledger
// donasi yang jadi sumber kebenaran tetap tabel donations.
type PaymentGatewayEventModel struct {
	PaymentGatewayEventID uuid.UUID `gorm:"column:payment_gateway_event_id;type:uuid;primaryKey" json:"payment_gateway_event_id"`

	PaymentGatewayEventProvider   string `gorm:"column:payment_gateway_event_provider;type:varchar(20);not null;index" json:"payment_gateway_event_provider"`
	PaymentGatewayEventExternalID string `gorm:"column:payment_gateway_event_external_id;type:varchar(255);index" json:"payment_gateway_event_external_id"`
	PaymentGatewayEventType       string `gorm:"column:payment_gateway_event_type;type:varchar(100);not null" json:"payment_gateway_event_type"`
	PaymentGatewayEventStatus     string `gorm:"column:payment_gateway_event_status;type:varchar(20);not null" json:"payment_gateway_event_status"`
	PaymentGatewayEventNote       string `gorm:"column:payment_gateway_event_note;type:text" json:"payment_gateway_event_note"`

	PaymentGatewayEventPayload datatypes.JSON `gorm:"column:payment_gateway_event_payload;type:jsonb" json:"payment_gateway_event_payload,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PaymentGatewayEventModel) TableName() string {
	return "payment_gateway_events"
}

// BeforeCreate: set ID jika kosong
func (m *PaymentGatewayEventModel) BeforeCreate(tx *gorm.DB) error {
	if m.PaymentGatewayEventID == uuid.Nil {
		m.PaymentGatewayEventID = uuid.New()
	}
	return nil
}
