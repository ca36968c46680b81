package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"tutorku_backend/internals/features/finance/payments/gateway"
	helper "tutorku_backend/internals/helpers"
)

type WebhookResult struct {
	EventID   uuid.UUID
	Duplicate bool
}

// HandleWebhook: verifikasi -> catat -> rekonsiliasi -> tandai.
// Gagal verifikasi = Validation (400). Gagal menulis log = Internal (500,
// provider akan retry). Gagal rekonsiliasi tetap sukses; event ditandai
// failed untuk replay.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, headers map[string]string) (*WebhookResult, error) {
	ev, err := s.Provider.ParseWebhook(ctx, body, headers)
	if err != nil {
		if _, lerr := s.RecordRejected(ctx, headers, body, err.Error()); lerr != nil {
			log.Printf("[ERROR] gagal mencatat webhook ditolak: %v", lerr)
		}
		log.Printf("[WARN] webhook %s ditolak: %v", s.Provider.Name(), err)
		switch {
		case errors.Is(err, gateway.ErrInvalidSignature):
			return nil, helper.Validation("invalid webhook signature", nil)
		case errors.Is(err, gateway.ErrMalformedPayload):
			return nil, helper.Validation("malformed webhook payload", nil)
		default:
			return nil, helper.Validation("invalid webhook", nil)
		}
	}

	row, dup, err := s.RecordReceived(ctx, ev, headers, body)
	if err != nil {
		return nil, helper.Internal(fmt.Errorf("record webhook event: %w", err))
	}
	if dup {
		log.Printf("[INFO] webhook duplicate provider=%s external_id=%s", ev.Provider, ev.ExternalID)
		return &WebhookResult{EventID: row.GatewayEventID, Duplicate: true}, nil
	}

	if err := s.process(ctx, row.GatewayEventID, ev); err != nil {
		// efek sudah atau belum diterapkan, status event tidak tersimpan
		log.Printf("[ERROR] gagal menandai event %s: %v", row.GatewayEventID, err)
	}
	return &WebhookResult{EventID: row.GatewayEventID}, nil
}
