package dto

import (
	"time"

	"github.com/google/uuid"

	"tutorku_backend/internals/features/finance/payments/model"
)

// Satu baris ledger + konteks kelas/siswa (GET /tutors/payments, GET /admin/payments)
type PaymentOverviewItem struct {
	ID           uuid.UUID           `json:"id"`
	EnrollmentID uuid.UUID           `json:"enrollment_id"`
	Amount       int64               `json:"amount"`
	Currency     string              `json:"currency"`
	Status       model.PaymentStatus `json:"status"`
	Provider     string              `json:"provider"`
	ReceiptURL   *string             `json:"receipt_url,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	ClassID      uuid.UUID           `json:"class_id"`
	ClassName    string              `json:"class_name"`
	TutorName    *string             `json:"tutor_name"`
	StudentName  *string             `json:"student_name"`
}

type OverviewTutor struct {
	ID   uuid.UUID `json:"id"`
	Name *string   `json:"name"`
}

type OverviewStudent struct {
	ID     uuid.UUID `json:"id"`
	Name   *string   `json:"name"`
	Status string    `json:"status"`
}

type OverviewClass struct {
	ID       uuid.UUID         `json:"id"`
	Name     string            `json:"name"`
	Tutor    OverviewTutor     `json:"tutor"`
	Students []OverviewStudent `json:"students"`
}

// GET /admin/payments
type AdminPaymentOverview struct {
	Payments []PaymentOverviewItem `json:"payments"`
	Classes  []OverviewClass       `json:"classes"`
	// PAID dikurangi REFUNDED
	TotalRevenue int64 `json:"total_revenue"`
}
