package dto

import (
	"time"

	"github.com/google/uuid"

	"tutorku_backend/internals/features/classes/enrollments/model"
)

// POST /enrollments
type EnrollRequest struct {
	ClassID   uuid.UUID `json:"class_id" validate:"required"`
	AutoRenew bool      `json:"auto_renew"`
}

// POST /re-enroll
type ReEnrollRequest struct {
	EnrollmentID uuid.UUID `json:"enrollment_id" validate:"required"`
}

// POST /enrollments/:id/hours
type RecordHoursRequest struct {
	Hours float64 `json:"hours" validate:"required,gt=0,lte=24"`
}

type CheckoutResponse struct {
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	URL          string    `json:"url"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
}

type HoursResponse struct {
	EnrollmentID   uuid.UUID              `json:"enrollment_id"`
	HoursUsed      float64                `json:"hours_used"`
	HoursRemaining float64                `json:"hours_remaining"`
	Status         model.EnrollmentStatus `json:"status"`
	Exhausted      bool                   `json:"exhausted"`
}

type EnrollmentItem struct {
	ID             uuid.UUID              `json:"id"`
	ClassID        uuid.UUID              `json:"class_id"`
	StudentID      uuid.UUID              `json:"student_id"`
	Status         model.EnrollmentStatus `json:"status"`
	PaymentStatus  model.PaymentStatus    `json:"payment_status"`
	Amount         int64                  `json:"amount"`
	Currency       string                 `json:"currency"`
	TotalHours     int                    `json:"total_hours"`
	HoursUsed      float64                `json:"hours_used"`
	HoursRemaining float64                `json:"hours_remaining"`
	StartDate      time.Time              `json:"start_date"`
	ExpiresAt      time.Time              `json:"expires_at"`
	AutoRenew      bool                   `json:"auto_renew"`
	CheckoutURL    *string                `json:"checkout_url,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

func FromModel(m model.EnrollmentModel) EnrollmentItem {
	out := EnrollmentItem{
		ID:             m.EnrollmentID,
		ClassID:        m.EnrollmentClassID,
		StudentID:      m.EnrollmentStudentID,
		Status:         m.EnrollmentStatus,
		PaymentStatus:  m.EnrollmentPaymentStatus,
		Amount:         m.EnrollmentAmount,
		Currency:       m.EnrollmentCurrency,
		TotalHours:     m.EnrollmentTotalHours,
		HoursUsed:      m.EnrollmentHoursUsed,
		HoursRemaining: m.HoursRemaining(),
		StartDate:      m.EnrollmentStartDate,
		ExpiresAt:      m.EnrollmentExpiresAt,
		AutoRenew:      m.EnrollmentAutoRenew,
		CreatedAt:      m.EnrollmentCreatedAt,
	}
	// link checkout cuma relevan selama belum dibayar
	if m.EnrollmentStatus == model.EnrollmentPending {
		out.CheckoutURL = m.EnrollmentCheckoutURL
	}
	return out
}
