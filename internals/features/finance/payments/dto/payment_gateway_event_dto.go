package dto

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"tutorku_backend/internals/features/finance/payments/model"
)

// ListGatewayEventsQuery: GET /admin/payment-events
type ListGatewayEventsQuery struct {
	Provider     string
	Status       string
	EnrollmentID *uuid.UUID
	Start        *time.Time
	End          *time.Time
	Offset       int
	Limit        int
}

type PaymentGatewayEventResponse struct {
	ID           uuid.UUID                `json:"id"`
	Provider     string                   `json:"provider"`
	Type         *string                  `json:"type"`
	ExternalID   *string                  `json:"external_id"`
	EnrollmentID *uuid.UUID               `json:"enrollment_id"`
	Status       model.GatewayEventStatus `json:"status"`
	Error        *string                  `json:"error"`
	TryCount     int                      `json:"try_count"`
	ReceivedAt   time.Time                `json:"received_at"`
	ProcessedAt  *time.Time               `json:"processed_at"`

	// hanya di detail
	Headers    datatypes.JSON `json:"headers,omitempty"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
	Normalized datatypes.JSON `json:"normalized,omitempty"`
}

func FromModelPGW(m *model.PaymentGatewayEventModel, detail bool) PaymentGatewayEventResponse {
	out := PaymentGatewayEventResponse{
		ID:           m.GatewayEventID,
		Provider:     m.GatewayEventProvider,
		Type:         m.GatewayEventType,
		ExternalID:   m.GatewayEventExternalID,
		EnrollmentID: m.GatewayEventEnrollmentID,
		Status:       m.GatewayEventStatus,
		Error:        m.GatewayEventError,
		TryCount:     m.GatewayEventTryCount,
		ReceivedAt:   m.GatewayEventReceivedAt,
		ProcessedAt:  m.GatewayEventProcessedAt,
	}
	if detail {
		out.Headers = m.GatewayEventHeaders
		out.Payload = m.GatewayEventPayload
		out.Normalized = m.GatewayEventNormalized
	}
	return out
}

// Balasan webhook ke provider
type WebhookAck struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

type PaymentResponse struct {
	ID           uuid.UUID           `json:"id"`
	EnrollmentID uuid.UUID           `json:"enrollment_id"`
	Amount       int64               `json:"amount"`
	Currency     string              `json:"currency"`
	Status       model.PaymentStatus `json:"status"`
	Provider     string              `json:"provider"`
	ExternalRef  string              `json:"external_ref"`
	ReceiptURL   *string             `json:"receipt_url,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

func FromPaymentModel(m model.PaymentModel) PaymentResponse {
	return PaymentResponse{
		ID:           m.PaymentID,
		EnrollmentID: m.PaymentEnrollmentID,
		Amount:       m.PaymentAmount,
		Currency:     m.PaymentCurrency,
		Status:       m.PaymentStatus,
		Provider:     m.PaymentProvider,
		ExternalRef:  m.PaymentExternalRef,
		ReceiptURL:   m.PaymentReceiptURL,
		CreatedAt:    m.PaymentCreatedAt,
	}
}
