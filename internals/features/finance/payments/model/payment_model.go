package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
  payments = ledger append-only hasil webhook.
  - Tidak pernah di-update setelah dibuat.
  - Unik per (provider, external_ref, status): webhook yang dikirim ulang
    tidak menambah row.
*/

type PaymentModel struct {
	PaymentID           uuid.UUID `gorm:"column:payment_id;type:uuid;primaryKey" json:"payment_id"`
	PaymentEnrollmentID uuid.UUID `gorm:"column:payment_enrollment_id;type:uuid;not null;index:idx_payments_enrollment" json:"payment_enrollment_id"`

	PaymentAmount   int64         `gorm:"column:payment_amount;not null" json:"payment_amount"`
	PaymentCurrency string        `gorm:"column:payment_currency;size:3;not null" json:"payment_currency"`
	PaymentStatus   PaymentStatus `gorm:"column:payment_status;type:varchar(16);not null;uniqueIndex:uq_payments_provider_ref_status,priority:3" json:"payment_status"`

	PaymentProvider    string  `gorm:"column:payment_provider;size:32;not null;uniqueIndex:uq_payments_provider_ref_status,priority:1" json:"payment_provider"`
	PaymentExternalRef string  `gorm:"column:payment_external_ref;size:255;not null;uniqueIndex:uq_payments_provider_ref_status,priority:2" json:"payment_external_ref"`
	PaymentReceiptURL  *string `gorm:"column:payment_receipt_url" json:"payment_receipt_url,omitempty"`

	PaymentCreatedAt time.Time `gorm:"column:payment_created_at;autoCreateTime" json:"payment_created_at"`
}

func (PaymentModel) TableName() string { return "payments" }

func (m *PaymentModel) BeforeCreate(tx *gorm.DB) error {
	if m.PaymentID == uuid.Nil {
		m.PaymentID = uuid.New()
	}
	return nil
}

func (m *PaymentModel) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}
