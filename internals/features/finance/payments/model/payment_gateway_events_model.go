package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
  payment_gateway_events = LOG WEBHOOK PAYMENT GATEWAY
  - Ditulis sebelum efek apapun, termasuk yang ditolak (signature salah).
  - external_id unik per provider, hanya diisi setelah signature valid,
    jadi row ini sekaligus kunci idempotensi.
  - event_normalized menyimpan hasil parse supaya bisa di-replay.
*/

type PaymentGatewayEventModel struct {
	GatewayEventID uuid.UUID `gorm:"column:gateway_event_id;type:uuid;primaryKey" json:"gateway_event_id"`

	GatewayEventProvider   string  `gorm:"column:gateway_event_provider;size:32;not null;uniqueIndex:uq_gw_event_provider_extid,priority:1" json:"gateway_event_provider"`
	GatewayEventType       *string `gorm:"column:gateway_event_type;size:80" json:"gateway_event_type"`
	GatewayEventExternalID *string `gorm:"column:gateway_event_external_id;size:255;uniqueIndex:uq_gw_event_provider_extid,priority:2" json:"gateway_event_external_id"`

	GatewayEventEnrollmentID *uuid.UUID `gorm:"column:gateway_event_enrollment_id;type:uuid;index" json:"gateway_event_enrollment_id"`

	// Raw data (buat debug / replay)
	GatewayEventHeaders    datatypes.JSON `gorm:"column:gateway_event_headers" json:"gateway_event_headers"`
	GatewayEventPayload    datatypes.JSON `gorm:"column:gateway_event_payload" json:"gateway_event_payload"`
	GatewayEventNormalized datatypes.JSON `gorm:"column:gateway_event_normalized" json:"gateway_event_normalized,omitempty"`
	GatewayEventSignature  *string        `gorm:"column:gateway_event_signature" json:"-"`

	// Status processing internal
	GatewayEventStatus   GatewayEventStatus `gorm:"column:gateway_event_status;type:varchar(16);not null;index" json:"gateway_event_status"`
	GatewayEventError    *string            `gorm:"column:gateway_event_error" json:"gateway_event_error"`
	GatewayEventTryCount int                `gorm:"column:gateway_event_try_count;not null;default:0" json:"gateway_event_try_count"`

	GatewayEventReceivedAt  time.Time  `gorm:"column:gateway_event_received_at;not null" json:"gateway_event_received_at"`
	GatewayEventProcessedAt *time.Time `gorm:"column:gateway_event_processed_at" json:"gateway_event_processed_at"`

	GatewayEventCreatedAt time.Time `gorm:"column:gateway_event_created_at;autoCreateTime" json:"gateway_event_created_at"`
	GatewayEventUpdatedAt time.Time `gorm:"column:gateway_event_updated_at;autoUpdateTime" json:"gateway_event_updated_at"`
}

func (PaymentGatewayEventModel) TableName() string {
	return "payment_gateway_events"
}

func (m *PaymentGatewayEventModel) BeforeCreate(tx *gorm.DB) error {
	if m.GatewayEventID == uuid.Nil {
		m.GatewayEventID = uuid.New()
	}
	if m.GatewayEventReceivedAt.IsZero() {
		m.GatewayEventReceivedAt = time.Now().UTC()
	}
	return nil
}
