package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tutorku_backend/internals/features/finance/payments/dto"
	"tutorku_backend/internals/features/finance/payments/gateway"
	"tutorku_backend/internals/features/finance/payments/model"
	helper "tutorku_backend/internals/helpers"
)

// header yang boleh disimpan; Authorization/Cookie tidak pernah ditulis ke log
var keptHeaders = map[string]bool{
	"content-type":     true,
	"user-agent":       true,
	"stripe-signature": true,
	"x-request-id":     true,
	"x-forwarded-for":  true,
}

func headersJSON(headers map[string]string) datatypes.JSON {
	kept := make(map[string]string, len(headers))
	for k, v := range headers {
		if keptHeaders[strings.ToLower(k)] {
			kept[k] = v
		}
	}
	b, err := sonic.Marshal(kept)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}

// payloadJSON: body bukan JSON disimpan sebagai string JSON supaya kolom jsonb tetap valid.
func payloadJSON(body []byte) datatypes.JSON {
	if len(body) > 0 && sonic.Valid(body) {
		return datatypes.JSON(append([]byte(nil), body...))
	}
	b, _ := sonic.Marshal(string(body))
	return datatypes.JSON(b)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

/* =========================================================
   WRITE
========================================================= */

// RecordRejected mencatat webhook yang gagal verifikasi. external_id
// sengaja kosong: payload belum dipercaya.
func (s *PaymentService) RecordRejected(ctx context.Context, headers map[string]string, body []byte, reason string) (*model.PaymentGatewayEventModel, error) {
	ev := model.PaymentGatewayEventModel{
		GatewayEventProvider:   s.Provider.Name(),
		GatewayEventHeaders:    headersJSON(headers),
		GatewayEventPayload:    payloadJSON(body),
		GatewayEventSignature:  strPtr(signatureOf(headers)),
		GatewayEventStatus:     model.GatewayEventStatusRejected,
		GatewayEventError:      strPtr(reason),
		GatewayEventReceivedAt: s.Now(),
	}
	if err := s.DB.WithContext(ctx).Create(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// RecordReceived menulis event sebelum efek apapun. dup=true kalau
// (provider, external_id) sudah pernah diterima dan tidak perlu diproses ulang.
func (s *PaymentService) RecordReceived(ctx context.Context, ev *gateway.Event, headers map[string]string, body []byte) (row *model.PaymentGatewayEventModel, dup bool, err error) {
	normalized, err := sonic.Marshal(ev)
	if err != nil {
		return nil, false, err
	}
	row = &model.PaymentGatewayEventModel{
		GatewayEventProvider:   ev.Provider,
		GatewayEventType:       strPtr(ev.Type),
		GatewayEventExternalID: strPtr(ev.ExternalID),
		GatewayEventHeaders:    headersJSON(headers),
		GatewayEventPayload:    payloadJSON(body),
		GatewayEventNormalized: datatypes.JSON(normalized),
		GatewayEventSignature:  strPtr(signatureOf(headers)),
		GatewayEventStatus:     model.GatewayEventStatusReceived,
		GatewayEventReceivedAt: s.Now(),
	}
	if id, ok := parseEnrollmentID(ev.EnrollmentID); ok {
		row.GatewayEventEnrollmentID = &id
	}

	db := s.DB.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return row, false, nil
	}

	// sudah ada
	var existing model.PaymentGatewayEventModel
	if err := db.First(&existing, "gateway_event_provider = ? AND gateway_event_external_id = ?", ev.Provider, ev.ExternalID).Error; err != nil {
		return nil, false, err
	}
	if existing.GatewayEventStatus == model.GatewayEventStatusFailed {
		// percobaan sebelumnya gagal: proses ulang row yang sama
		return &existing, false, nil
	}

	// jejak redelivery, tanpa external_id supaya tidak bentrok dengan unique index
	dupRow := model.PaymentGatewayEventModel{
		GatewayEventProvider:     ev.Provider,
		GatewayEventType:         strPtr(ev.Type),
		GatewayEventEnrollmentID: existing.GatewayEventEnrollmentID,
		GatewayEventHeaders:      row.GatewayEventHeaders,
		GatewayEventPayload:      row.GatewayEventPayload,
		GatewayEventSignature:    row.GatewayEventSignature,
		GatewayEventStatus:       model.GatewayEventStatusDuplicate,
		GatewayEventError:        strPtr("duplicate of " + existing.GatewayEventID.String()),
		GatewayEventReceivedAt:   s.Now(),
	}
	if err := db.Create(&dupRow).Error; err != nil {
		log.Printf("[WARN] gagal mencatat duplicate event %s: %v", ev.ExternalID, err)
	}
	return &existing, true, nil
}

// MarkProcessed menyimpan hasil rekonsiliasi dan menaikkan try_count.
func (s *PaymentService) MarkProcessed(ctx context.Context, id uuid.UUID, status model.GatewayEventStatus, note string, enrollmentID *uuid.UUID) error {
	updates := map[string]any{
		"gateway_event_status":       status,
		"gateway_event_error":        strPtr(note),
		"gateway_event_processed_at": s.Now(),
		"gateway_event_try_count":    gorm.Expr("gateway_event_try_count + 1"),
	}
	if enrollmentID != nil {
		updates["gateway_event_enrollment_id"] = *enrollmentID
	}
	return s.DB.WithContext(ctx).Model(&model.PaymentGatewayEventModel{}).
		Where("gateway_event_id = ?", id).
		Updates(updates).Error
}

/* =========================================================
   READ (admin)
========================================================= */

func (s *PaymentService) ListEvents(ctx context.Context, q dto.ListGatewayEventsQuery) ([]model.PaymentGatewayEventModel, int64, error) {
	db := s.DB.WithContext(ctx).Model(&model.PaymentGatewayEventModel{})
	if q.Provider != "" {
		db = db.Where("gateway_event_provider = ?", strings.ToLower(q.Provider))
	}
	if q.Status != "" {
		db = db.Where("gateway_event_status = ?", strings.ToLower(q.Status))
	}
	if q.EnrollmentID != nil {
		db = db.Where("gateway_event_enrollment_id = ?", *q.EnrollmentID)
	}
	if q.Start != nil {
		db = db.Where("gateway_event_received_at >= ?", *q.Start)
	}
	if q.End != nil {
		db = db.Where("gateway_event_received_at < ?", *q.End)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, helper.Internal(err)
	}
	var rows []model.PaymentGatewayEventModel
	if err := db.Order("gateway_event_received_at DESC").
		Limit(q.Limit).Offset(q.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, helper.Internal(err)
	}
	return rows, total, nil
}

func (s *PaymentService) GetEvent(ctx context.Context, id uuid.UUID) (*model.PaymentGatewayEventModel, error) {
	var m model.PaymentGatewayEventModel
	if err := s.DB.WithContext(ctx).First(&m, "gateway_event_id = ?", id).Error; err != nil {
		if helper.IsNotFound(err) {
			return nil, helper.NotFound("event not found")
		}
		return nil, helper.Internal(err)
	}
	return &m, nil
}

// Replay menjalankan ulang rekonsiliasi dari event_normalized.
func (s *PaymentService) Replay(ctx context.Context, id uuid.UUID) (*model.PaymentGatewayEventModel, error) {
	row, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	switch row.GatewayEventStatus {
	case model.GatewayEventStatusRejected, model.GatewayEventStatusDuplicate:
		return nil, helper.InvalidOperation("rejected or duplicate events cannot be replayed")
	}
	if len(row.GatewayEventNormalized) == 0 {
		return nil, helper.InvalidOperation("event has no normalized payload")
	}

	var ev gateway.Event
	if err := sonic.Unmarshal(row.GatewayEventNormalized, &ev); err != nil {
		return nil, helper.Internal(fmt.Errorf("decode normalized event: %w", err))
	}

	if err := s.process(ctx, row.GatewayEventID, &ev); err != nil {
		return nil, helper.Internal(err)
	}
	return s.GetEvent(ctx, id)
}

// process: reconcile lalu simpan status akhir event.
func (s *PaymentService) process(ctx context.Context, eventID uuid.UUID, ev *gateway.Event) error {
	out, rerr := s.Reconcile(ctx, ev)
	if rerr != nil {
		log.Printf("[ERROR] reconcile event=%s provider=%s kind=%s: %v", ev.ExternalID, ev.Provider, ev.Kind, rerr)
		if err := s.MarkProcessed(ctx, eventID, model.GatewayEventStatusFailed, rerr.Error(), nil); err != nil {
			return errors.Join(rerr, err)
		}
		return nil
	}
	return s.MarkProcessed(ctx, eventID, out.Status, out.Note, out.EnrollmentID)
}

func signatureOf(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "Stripe-Signature") {
			return v
		}
	}
	return ""
}
