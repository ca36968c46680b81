package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	classService "tutorku_backend/internals/features/classes/classes/service"
	enrollmentModel "tutorku_backend/internals/features/classes/enrollments/model"
	enrollmentService "tutorku_backend/internals/features/classes/enrollments/service"
	"tutorku_backend/internals/features/finance/payments/gateway"
	"tutorku_backend/internals/features/finance/payments/model"
	userModel "tutorku_backend/internals/features/users/user/model"
	helper "tutorku_backend/internals/helpers"
)

var tracer = otel.Tracer("tutorku_backend/payments")

type PaymentService struct {
	DB       *gorm.DB
	Provider gateway.Provider
	Now      func() time.Time
}

func NewPaymentService(db *gorm.DB, provider gateway.Provider) *PaymentService {
	return &PaymentService{
		DB:       db,
		Provider: provider,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Outcome hasil rekonsiliasi satu event.
type Outcome struct {
	Status       model.GatewayEventStatus
	EnrollmentID *uuid.UUID
	Note         string
}

const staleSessionNote = "stale checkout session"

func ignored(note string) *Outcome {
	return &Outcome{Status: model.GatewayEventStatusIgnored, Note: note}
}

/* =========================================================
   RECONCILE
========================================================= */

// Reconcile menerapkan efek event ke enrollment + ledger payments.
// Aman dipanggil berulang untuk event yang sama.
func (s *PaymentService) Reconcile(ctx context.Context, ev *gateway.Event) (out *Outcome, err error) {
	ctx, span := tracer.Start(ctx, "payments.Reconcile", trace.WithAttributes(
		attribute.String("payment.provider", ev.Provider),
		attribute.String("payment.event_kind", string(ev.Kind)),
		attribute.String("payment.external_id", ev.ExternalID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if out != nil {
			span.SetAttributes(attribute.String("payment.outcome", string(out.Status)))
		}
		span.End()
	}()

	switch ev.Kind {
	case gateway.KindCheckoutCompleted:
		return s.onCompleted(ctx, ev)
	case gateway.KindCheckoutExpired:
		return s.onExpired(ctx, ev)
	case gateway.KindPaymentFailed:
		return s.onFailed(ctx, ev)
	case gateway.KindRefunded:
		return s.onRefunded(ctx, ev)
	case gateway.KindIgnored:
		return ignored("event type not handled: " + ev.Type), nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func (s *PaymentService) onCompleted(ctx context.Context, ev *gateway.Event) (*Outcome, error) {
	id, ok := parseEnrollmentID(ev.EnrollmentID)
	if !ok {
		return ignored("completed event without enrollment id"), nil
	}

	out := &Outcome{Status: model.GatewayEventStatusProcessed, EnrollmentID: &id}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := loadEnrollment(tx, id)
		if err != nil {
			return err
		}
		if e == nil {
			out.Status, out.Note = model.GatewayEventStatusIgnored, "enrollment not found"
			return nil
		}

		// savepoint: di Postgres unique violation membatalkan seluruh tx
		if err := tx.SavePoint("activate").Error; err != nil {
			return err
		}
		activated, err := enrollmentService.ActivatePaid(tx, id, s.Now())
		if err != nil {
			if !helper.IsUniqueViolation(err) {
				return err
			}
			// sudah ada enrollment hidup lain untuk kelas ini; bayarannya tetap dicatat
			if err := tx.RollbackTo("activate").Error; err != nil {
				return err
			}
			log.Printf("[WARN] enrollment %s paid but another live enrollment exists", id)
			out.Note = "another live enrollment exists"
		}

		if err := insertPayment(tx, e, ev, model.PaymentStatusPaid); err != nil {
			return err
		}

		if err := tx.First(e, "enrollment_id = ?", id).Error; err != nil {
			return err
		}
		if e.EnrollmentStatus == enrollmentModel.EnrollmentActive {
			var st userModel.StudentModel
			if err := tx.First(&st, "student_id = ?", e.EnrollmentStudentID).Error; err != nil {
				return err
			}
			if err := classService.EnsureMember(tx, st.StudentUserID, e.EnrollmentClassID); err != nil {
				return err
			}
		}
		if activated {
			log.Printf("[INFO] enrollment %s -> ACTIVE/PAID via %s", id, ev.Provider)
		} else if e.EnrollmentStatus != enrollmentModel.EnrollmentActive && e.EnrollmentStatus != enrollmentModel.EnrollmentCompleted &&
			e.EnrollmentPaymentStatus != enrollmentModel.PaymentPaid && !e.EnrollmentExpiresAt.After(s.Now()) {
			// bayaran masuk setelah masa berlaku habis; perlu ditindaklanjuti manual (refund / re-enroll)
			log.Printf("[WARN] enrollment %s paid after expiry, not reactivated", id)
			out.Note = "paid after expiry"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PaymentService) onExpired(ctx context.Context, ev *gateway.Event) (*Outcome, error) {
	id, ok := parseEnrollmentID(ev.EnrollmentID)
	if !ok {
		return ignored("expired event without enrollment id"), nil
	}

	out := &Outcome{Status: model.GatewayEventStatusProcessed, EnrollmentID: &id}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := loadEnrollment(tx, id)
		if err != nil {
			return err
		}
		if e == nil {
			out.Status, out.Note = model.GatewayEventStatusIgnored, "enrollment not found"
			return nil
		}
		if enrollmentService.StaleSession(e, ev.SessionID) {
			out.Status, out.Note = model.GatewayEventStatusIgnored, staleSessionNote
			return nil
		}
		changed, err := enrollmentService.FailPending(tx, id, ev.SessionID)
		if err != nil {
			return err
		}
		if changed {
			log.Printf("[INFO] enrollment %s checkout expired -> EXPIRED/FAILED", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PaymentService) onFailed(ctx context.Context, ev *gateway.Event) (*Outcome, error) {
	id, ok, err := s.resolveEnrollment(ctx, ev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ignored("payment failed for unknown enrollment"), nil
	}

	out := &Outcome{Status: model.GatewayEventStatusProcessed, EnrollmentID: &id}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := loadEnrollment(tx, id)
		if err != nil {
			return err
		}
		if e == nil {
			out.Status, out.Note = model.GatewayEventStatusIgnored, "enrollment not found"
			return nil
		}
		// percobaan bayar di session lama tetap masuk ledger, enrollment tidak diubah
		if enrollmentService.StaleSession(e, ev.SessionID) {
			out.Note = staleSessionNote
		} else if _, err := enrollmentService.FailPending(tx, id, ev.SessionID); err != nil {
			return err
		}
		return insertPayment(tx, e, ev, model.PaymentStatusFailed)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// onRefunded hanya mencatat ledger; status enrollment tidak diubah.
func (s *PaymentService) onRefunded(ctx context.Context, ev *gateway.Event) (*Outcome, error) {
	id, ok, err := s.resolveEnrollment(ctx, ev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ignored("refund for unknown enrollment"), nil
	}

	out := &Outcome{Status: model.GatewayEventStatusProcessed, EnrollmentID: &id}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := loadEnrollment(tx, id)
		if err != nil {
			return err
		}
		if e == nil {
			out.Status, out.Note = model.GatewayEventStatusIgnored, "enrollment not found"
			return nil
		}
		return insertPayment(tx, e, ev, model.PaymentStatusRefunded)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

/* =========================================================
   Helpers
========================================================= */

// resolveEnrollment: id di event, lalu tanya provider, lalu session id lokal.
func (s *PaymentService) resolveEnrollment(ctx context.Context, ev *gateway.Event) (uuid.UUID, bool, error) {
	if id, ok := parseEnrollmentID(ev.EnrollmentID); ok {
		return id, true, nil
	}
	raw, err := s.Provider.ResolveEnrollmentID(ctx, ev)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("resolve enrollment: %w", err)
	}
	if id, ok := parseEnrollmentID(raw); ok {
		return id, true, nil
	}
	if ev.SessionID != "" {
		e, err := enrollmentService.FindBySession(s.DB.WithContext(ctx), ev.SessionID)
		switch {
		case err == nil:
			return e.EnrollmentID, true, nil
		case !helper.IsNotFound(err):
			return uuid.Nil, false, err
		}
	}
	return uuid.Nil, false, nil
}

func parseEnrollmentID(raw string) (uuid.UUID, bool) {
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func loadEnrollment(tx *gorm.DB, id uuid.UUID) (*enrollmentModel.EnrollmentModel, error) {
	var e enrollmentModel.EnrollmentModel
	if err := tx.First(&e, "enrollment_id = ?", id).Error; err != nil {
		if helper.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// insertPayment: upsert-by-(provider, ref, status), redelivery tidak menambah row.
func insertPayment(tx *gorm.DB, e *enrollmentModel.EnrollmentModel, ev *gateway.Event, status model.PaymentStatus) error {
	p := model.PaymentModel{
		PaymentEnrollmentID: e.EnrollmentID,
		PaymentAmount:       ev.Amount,
		PaymentCurrency:     ev.Currency,
		PaymentStatus:       status,
		PaymentProvider:     ev.Provider,
		PaymentExternalRef:  ev.ExternalRef(),
	}
	if p.PaymentAmount <= 0 {
		p.PaymentAmount = e.EnrollmentAmount
	}
	if p.PaymentCurrency == "" {
		p.PaymentCurrency = e.EnrollmentCurrency
	}
	if ev.ReceiptURL != "" {
		p.PaymentReceiptURL = &ev.ReceiptURL
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error
}

// ListPayments: ledger satu enrollment, terbaru dulu.
func (s *PaymentService) ListPayments(ctx context.Context, enrollmentID uuid.UUID) ([]model.PaymentModel, error) {
	var rows []model.PaymentModel
	err := s.DB.WithContext(ctx).
		Where("payment_enrollment_id = ?", enrollmentID).
		Order("payment_created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, helper.Internal(err)
	}
	return rows, nil
}
