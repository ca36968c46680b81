package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EnrollmentStatus string
type PaymentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "PENDING"
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentExpired   EnrollmentStatus = "EXPIRED"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
)

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

/*
  enrollments = paket jam berbayar seorang student di satu kelas.
  - Maksimal satu row "hidup" (PENDING/ACTIVE) per (class, student),
    dijaga partial unique index uq_enrollments_live.
  - Row EXPIRED tetap ada sebagai histori; re-enroll membuat row baru.
*/

type EnrollmentModel struct {
	EnrollmentID            uuid.UUID        `gorm:"column:enrollment_id;type:uuid;primaryKey" json:"enrollment_id"`
	EnrollmentClassID       uuid.UUID        `gorm:"column:enrollment_class_id;type:uuid;not null;uniqueIndex:uq_enrollments_live,where:enrollment_status <> 'EXPIRED' AND enrollment_status <> 'COMPLETED'" json:"enrollment_class_id"`
	EnrollmentStudentID     uuid.UUID        `gorm:"column:enrollment_student_id;type:uuid;not null;uniqueIndex:uq_enrollments_live;index:idx_enrollments_student" json:"enrollment_student_id"`
	EnrollmentStatus        EnrollmentStatus `gorm:"column:enrollment_status;type:varchar(16);not null;index:idx_enrollments_status_expiry,priority:1" json:"enrollment_status"`
	EnrollmentPaymentStatus PaymentStatus    `gorm:"column:enrollment_payment_status;type:varchar(16);not null" json:"enrollment_payment_status"`

	// Nominal dalam satuan mayor, dihitung sekali saat row dibuat
	EnrollmentAmount   int64  `gorm:"column:enrollment_amount;not null" json:"enrollment_amount"`
	EnrollmentCurrency string `gorm:"column:enrollment_currency;size:3;not null" json:"enrollment_currency"`

	EnrollmentTotalHours int     `gorm:"column:enrollment_total_hours;not null" json:"enrollment_total_hours"`
	EnrollmentHoursUsed  float64 `gorm:"column:enrollment_hours_used;not null;default:0" json:"enrollment_hours_used"`

	EnrollmentStartDate time.Time `gorm:"column:enrollment_start_date;not null" json:"enrollment_start_date"`
	EnrollmentExpiresAt time.Time `gorm:"column:enrollment_expires_at;not null;index:idx_enrollments_status_expiry,priority:2" json:"enrollment_expires_at"`
	EnrollmentAutoRenew bool      `gorm:"column:enrollment_auto_renew;not null;default:false" json:"enrollment_auto_renew"`

	// checkout terakhir yang diterbitkan provider
	EnrollmentCheckoutSessionID *string `gorm:"column:enrollment_checkout_session_id;size:255;index" json:"enrollment_checkout_session_id,omitempty"`
	EnrollmentCheckoutURL       *string `gorm:"column:enrollment_checkout_url" json:"enrollment_checkout_url,omitempty"`

	EnrollmentCreatedAt time.Time `gorm:"column:enrollment_created_at;autoCreateTime" json:"enrollment_created_at"`
	EnrollmentUpdatedAt time.Time `gorm:"column:enrollment_updated_at;autoUpdateTime" json:"enrollment_updated_at"`
}

func (EnrollmentModel) TableName() string { return "enrollments" }

func (m *EnrollmentModel) BeforeCreate(tx *gorm.DB) error {
	if m.EnrollmentID == uuid.Nil {
		m.EnrollmentID = uuid.New()
	}
	return nil
}

func (m *EnrollmentModel) HoursRemaining() float64 {
	r := float64(m.EnrollmentTotalHours) - m.EnrollmentHoursUsed
	if r < 0 {
		return 0
	}
	return r
}

// Lapsed: lewat masa berlaku atau jam sudah habis.
func (m *EnrollmentModel) Lapsed(now time.Time) bool {
	return now.After(m.EnrollmentExpiresAt) || m.EnrollmentHoursUsed >= float64(m.EnrollmentTotalHours)
}

func (s EnrollmentStatus) Live() bool {
	return s == EnrollmentPending || s == EnrollmentActive
}
