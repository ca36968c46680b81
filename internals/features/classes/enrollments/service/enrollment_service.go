package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	classModel "tutorku_backend/internals/features/classes/classes/model"
	"tutorku_backend/internals/features/classes/enrollments/dto"
	"tutorku_backend/internals/features/classes/enrollments/model"
	"tutorku_backend/internals/features/finance/payments/gateway"
	userService "tutorku_backend/internals/features/users/user/service"
	helper "tutorku_backend/internals/helpers"
)

const DefaultTTLMonths = 6

var tracer = otel.Tracer("tutorku_backend/enrollments")

var liveStatuses = []model.EnrollmentStatus{model.EnrollmentPending, model.EnrollmentActive}

type EnrollmentService struct {
	DB        *gorm.DB
	Provider  gateway.Provider
	AppURL    string
	TTLMonths int
	Now       func() time.Time
}

func NewEnrollmentService(db *gorm.DB, provider gateway.Provider, appURL string, ttlMonths int) *EnrollmentService {
	if ttlMonths <= 0 {
		ttlMonths = DefaultTTLMonths
	}
	return &EnrollmentService{
		DB:        db,
		Provider:  provider,
		AppURL:    appURL,
		TTLMonths: ttlMonths,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// ComputeAmount: harga paket kalau ada, kalau tidak harga per jam x jam default.
func ComputeAmount(c classModel.ClassModel) int64 {
	if c.ClassPackagePrice != nil {
		return *c.ClassPackagePrice
	}
	return c.ClassPricePerHour * int64(c.ClassDefaultHours)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *EnrollmentService) loadClass(ctx context.Context, id uuid.UUID) (*classModel.ClassModel, error) {
	var c classModel.ClassModel
	if err := s.DB.WithContext(ctx).First(&c, "class_id = ?", id).Error; err != nil {
		if helper.IsNotFound(err) {
			return nil, helper.NotFound("class not found")
		}
		return nil, helper.Internal(err)
	}
	return &c, nil
}

func (s *EnrollmentService) load(ctx context.Context, id uuid.UUID) (*model.EnrollmentModel, error) {
	var e model.EnrollmentModel
	if err := s.DB.WithContext(ctx).First(&e, "enrollment_id = ?", id).Error; err != nil {
		if helper.IsNotFound(err) {
			return nil, helper.NotFound("enrollment not found")
		}
		return nil, helper.Internal(err)
	}
	return &e, nil
}

/* =========================================================
   ENROLL / RE-ENROLL
========================================================= */

func (s *EnrollmentService) Enroll(ctx context.Context, student *userService.StudentActor, req dto.EnrollRequest) (out *dto.CheckoutResponse, err error) {
	ctx, span := tracer.Start(ctx, "enrollments.Enroll", trace.WithAttributes(
		attribute.String("class.id", req.ClassID.String()),
		attribute.String("student.id", student.Student.StudentID.String()),
	))
	defer func() { endSpan(span, err) }()

	class, err := s.loadClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !class.ClassRequiresPayment {
		return nil, helper.InvalidOperation("class is free, join it with the class code")
	}

	var existing model.EnrollmentModel
	err = s.DB.WithContext(ctx).
		Where("enrollment_class_id = ? AND enrollment_student_id = ? AND enrollment_status IN ?",
			class.ClassID, student.Student.StudentID, liveStatuses).
		Order("enrollment_created_at DESC").
		First(&existing).Error
	switch {
	case err == nil:
		status, err := s.refresh(ctx, &existing)
		if err != nil {
			return nil, err
		}
		switch status {
		case model.EnrollmentActive:
			return nil, helper.Conflict("already enrolled in this class")
		case model.EnrollmentPending:
			// checkout ditinggal: terbitkan checkout baru untuk row yang sama
			return s.checkout(ctx, &existing, class, student)
		}
		// baru saja lapsed, lanjut buat row baru
	case helper.IsNotFound(err):
	default:
		return nil, helper.Internal(err)
	}

	e, err := s.create(ctx, class, student.Student.StudentID, req.AutoRenew)
	if err != nil {
		return nil, err
	}
	return s.checkout(ctx, e, class, student)
}

// ReEnroll memperpanjang enrollment yang sudah EXPIRED dengan row baru.
func (s *EnrollmentService) ReEnroll(ctx context.Context, student *userService.StudentActor, enrollmentID uuid.UUID) (out *dto.CheckoutResponse, err error) {
	ctx, span := tracer.Start(ctx, "enrollments.ReEnroll", trace.WithAttributes(
		attribute.String("enrollment.id", enrollmentID.String()),
	))
	defer func() { endSpan(span, err) }()

	old, err := s.load(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if old.EnrollmentStudentID != student.Student.StudentID {
		return nil, helper.NotFound("enrollment not found")
	}
	status, err := s.refresh(ctx, old)
	if err != nil {
		return nil, err
	}
	if status != model.EnrollmentExpired {
		return nil, helper.InvalidOperation("only expired enrollments can be renewed")
	}

	class, err := s.loadClass(ctx, old.EnrollmentClassID)
	if err != nil {
		return nil, err
	}
	// harga dihitung ulang dari harga kelas saat ini
	e, err := s.create(ctx, class, student.Student.StudentID, old.EnrollmentAutoRenew)
	if err != nil {
		return nil, err
	}
	return s.checkout(ctx, e, class, student)
}

func (s *EnrollmentService) create(ctx context.Context, class *classModel.ClassModel, studentID uuid.UUID, autoRenew bool) (*model.EnrollmentModel, error) {
	amount := ComputeAmount(*class)
	if amount <= 0 {
		return nil, helper.InvalidOperation("class has no price")
	}
	now := s.Now()
	e := model.EnrollmentModel{
		EnrollmentClassID:       class.ClassID,
		EnrollmentStudentID:     studentID,
		EnrollmentStatus:        model.EnrollmentPending,
		EnrollmentPaymentStatus: model.PaymentPending,
		EnrollmentAmount:        amount,
		EnrollmentCurrency:      class.ClassCurrency,
		EnrollmentTotalHours:    class.ClassDefaultHours,
		EnrollmentStartDate:     now,
		EnrollmentExpiresAt:     now.AddDate(0, s.TTLMonths, 0),
		EnrollmentAutoRenew:     autoRenew,
	}
	if err := s.DB.WithContext(ctx).Create(&e).Error; err != nil {
		if helper.IsUniqueViolation(err) {
			return nil, helper.Conflict("an enrollment for this class is already in progress")
		}
		return nil, helper.Internal(err)
	}
	log.Printf("[INFO] enrollment created id=%s class=%s student=%s amount=%d", e.EnrollmentID, class.ClassID, studentID, amount)
	return &e, nil
}

func (s *EnrollmentService) checkout(ctx context.Context, e *model.EnrollmentModel, class *classModel.ClassModel, student *userService.StudentActor) (*dto.CheckoutResponse, error) {
	req := gateway.CheckoutRequest{
		EnrollmentID: e.EnrollmentID.String(),
		ItemName:     class.ClassName,
		Amount:       e.EnrollmentAmount,
		Currency:     e.EnrollmentCurrency,
		CustomerID:   student.User.ID.String(),
		SuccessURL:   fmt.Sprintf("%s/student/classes/%s?success=true", s.AppURL, class.ClassID),
		CancelURL:    fmt.Sprintf("%s/student-invitation?canceled=true", s.AppURL),
		Metadata:     map[string]string{"enrollmentId": e.EnrollmentID.String()},
	}
	if student.User.Email != nil {
		req.Email = *student.User.Email
	}

	co, err := s.Provider.CreateCheckout(ctx, req)
	if err != nil {
		log.Printf("[ERROR] checkout enrollment=%s provider=%s: %v", e.EnrollmentID, s.Provider.Name(), err)
		return nil, helper.Upstream("payment provider unavailable", err)
	}

	err = s.DB.WithContext(ctx).Model(&model.EnrollmentModel{}).
		Where("enrollment_id = ?", e.EnrollmentID).
		Updates(map[string]any{
			"enrollment_checkout_session_id": co.SessionID,
			"enrollment_checkout_url":        co.URL,
		}).Error
	if err != nil {
		return nil, helper.Internal(err)
	}
	e.EnrollmentCheckoutSessionID = &co.SessionID
	e.EnrollmentCheckoutURL = &co.URL

	return &dto.CheckoutResponse{
		EnrollmentID: e.EnrollmentID,
		URL:          co.URL,
		Amount:       e.EnrollmentAmount,
		Currency:     e.EnrollmentCurrency,
	}, nil
}

/* =========================================================
   STATUS
========================================================= */

// CheckStatus wajib dipanggil sebelum keputusan akses: status tersimpan
// bisa basi antara lapse dan sweep berikutnya.
func (s *EnrollmentService) CheckStatus(ctx context.Context, id uuid.UUID) (model.EnrollmentStatus, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	return s.refresh(ctx, e)
}

// refresh menulis EXPIRED kalau row hidup sudah lapsed.
func (s *EnrollmentService) refresh(ctx context.Context, e *model.EnrollmentModel) (model.EnrollmentStatus, error) {
	if !e.EnrollmentStatus.Live() || !e.Lapsed(s.Now()) {
		return e.EnrollmentStatus, nil
	}
	db := s.DB.WithContext(ctx)
	res := db.Model(&model.EnrollmentModel{}).
		Where("enrollment_id = ? AND enrollment_status IN ?", e.EnrollmentID, liveStatuses).
		Update("enrollment_status", model.EnrollmentExpired)
	if res.Error != nil {
		return "", helper.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		// diubah request lain; pakai nilai terbaru
		if err := db.First(e, "enrollment_id = ?", e.EnrollmentID).Error; err != nil {
			return "", helper.Internal(err)
		}
		return e.EnrollmentStatus, nil
	}
	log.Printf("[INFO] enrollment %s lapsed -> EXPIRED", e.EnrollmentID)
	e.EnrollmentStatus = model.EnrollmentExpired
	return e.EnrollmentStatus, nil
}

// SweepExpired meng-expire semua row hidup yang sudah lapsed.
func (s *EnrollmentService) SweepExpired(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&model.EnrollmentModel{}).
		Where("enrollment_status IN ? AND (enrollment_expires_at < ? OR enrollment_hours_used >= enrollment_total_hours)",
			liveStatuses, s.Now()).
		Update("enrollment_status", model.EnrollmentExpired)
	if res.Error != nil {
		return 0, helper.Internal(res.Error)
	}
	return res.RowsAffected, nil
}

/* =========================================================
   HOURS
========================================================= */

// UpdateHoursUsed menambah jam terpakai dalam satu UPDATE; jam dicap di
// total dan status langsung EXPIRED kalau habis.
func (s *EnrollmentService) UpdateHoursUsed(ctx context.Context, id uuid.UUID, delta float64) (*model.EnrollmentModel, bool, error) {
	if !(delta > 0) || math.IsInf(delta, 0) {
		return nil, false, helper.Validation("hours must be greater than zero", map[string][]string{"hours": {"gt=0"}})
	}
	db := s.DB.WithContext(ctx)

	res := db.Model(&model.EnrollmentModel{}).
		Where("enrollment_id = ? AND enrollment_status = ? AND enrollment_expires_at > ?", id, model.EnrollmentActive, s.Now()).
		Updates(map[string]any{
			"enrollment_hours_used": gorm.Expr(
				"CASE WHEN enrollment_hours_used + ? >= enrollment_total_hours THEN enrollment_total_hours ELSE enrollment_hours_used + ? END",
				delta, delta),
			"enrollment_status": gorm.Expr(
				"CASE WHEN enrollment_hours_used + ? >= enrollment_total_hours THEN ? ELSE enrollment_status END",
				delta, model.EnrollmentExpired),
		})
	if res.Error != nil {
		return nil, false, helper.Internal(res.Error)
	}

	e, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if res.RowsAffected == 0 {
		if _, err := s.refresh(ctx, e); err != nil {
			return nil, false, err
		}
		return nil, false, helper.InvalidOperation("enrollment is not active")
	}

	exhausted := e.EnrollmentStatus == model.EnrollmentExpired
	if exhausted {
		log.Printf("[INFO] enrollment %s hours exhausted (%.2f/%d)", e.EnrollmentID, e.EnrollmentHoursUsed, e.EnrollmentTotalHours)
	}
	return e, exhausted, nil
}

// RecordHours: hanya tutor pemilik kelas atau admin/system.
func (s *EnrollmentService) RecordHours(ctx context.Context, actor userService.Actor, id uuid.UUID, delta float64) (*dto.HoursResponse, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch a := actor.(type) {
	case *userService.TutorActor:
		class, err := s.loadClass(ctx, e.EnrollmentClassID)
		if err != nil {
			return nil, err
		}
		if class.ClassTutorID != a.Tutor.TutorID {
			return nil, helper.Forbidden("only the class tutor can record hours")
		}
	case *userService.AdminActor, *userService.SystemActor:
	case *userService.StudentActor, *userService.GuestActor:
		return nil, helper.Forbidden("only the class tutor can record hours")
	default:
		return nil, helper.Internal(fmt.Errorf("unknown actor %T", actor))
	}

	updated, exhausted, err := s.UpdateHoursUsed(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	return &dto.HoursResponse{
		EnrollmentID:   updated.EnrollmentID,
		HoursUsed:      updated.EnrollmentHoursUsed,
		HoursRemaining: updated.HoursRemaining(),
		Status:         updated.EnrollmentStatus,
		Exhausted:      exhausted,
	}, nil
}

/* =========================================================
   READ
========================================================= */

// Get: student pemilik, tutor kelas, atau operator. Selain itu NotFound.
func (s *EnrollmentService) Get(ctx context.Context, actor userService.Actor, id uuid.UUID) (*dto.EnrollmentItem, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	switch a := actor.(type) {
	case *userService.StudentActor:
		allowed = e.EnrollmentStudentID == a.Student.StudentID
	case *userService.TutorActor:
		class, err := s.loadClass(ctx, e.EnrollmentClassID)
		if err != nil {
			return nil, err
		}
		allowed = class.ClassTutorID == a.Tutor.TutorID
	case *userService.AdminActor, *userService.SystemActor:
		allowed = true
	case *userService.GuestActor:
	default:
		return nil, helper.Internal(fmt.Errorf("unknown actor %T", actor))
	}
	if !allowed {
		return nil, helper.NotFound("enrollment not found")
	}

	if _, err := s.refresh(ctx, e); err != nil {
		return nil, err
	}
	item := dto.FromModel(*e)
	return &item, nil
}

func (s *EnrollmentService) ListForStudent(ctx context.Context, student *userService.StudentActor) ([]dto.EnrollmentItem, error) {
	var rows []model.EnrollmentModel
	err := s.DB.WithContext(ctx).
		Where("enrollment_student_id = ?", student.Student.StudentID).
		Order("enrollment_created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, helper.Internal(err)
	}
	out := make([]dto.EnrollmentItem, 0, len(rows))
	for i := range rows {
		if _, err := s.refresh(ctx, &rows[i]); err != nil {
			return nil, err
		}
		out = append(out, dto.FromModel(rows[i]))
	}
	return out, nil
}

/* =========================================================
   TRANSITIONS (dipakai rekonsiliasi pembayaran, di dalam tx)
========================================================= */

// ActivatePaid: PENDING, atau EXPIRED yang belum pernah dibayar, jadi
// ACTIVE/PAID. ACTIVE/COMPLETED, EXPIRED yang sudah PAID, atau row yang
// expires_at-nya sudah lewat tidak disentuh.
func ActivatePaid(tx *gorm.DB, id uuid.UUID, now time.Time) (bool, error) {
	res := tx.Model(&model.EnrollmentModel{}).
		Where("enrollment_id = ? AND enrollment_expires_at > ? AND (enrollment_status = ? OR (enrollment_status = ? AND enrollment_payment_status <> ?))",
			id, now, model.EnrollmentPending, model.EnrollmentExpired, model.PaymentPaid).
		Updates(map[string]any{
			"enrollment_status":         model.EnrollmentActive,
			"enrollment_payment_status": model.PaymentPaid,
		})
	return res.RowsAffected > 0, res.Error
}

// FailPending: hanya PENDING yang bisa gagal; ACTIVE tidak pernah di-expire oleh event gateway.
// sessionID kosong = event tidak membawa session; kalau ada, harus session checkout yang terakhir.
func FailPending(tx *gorm.DB, id uuid.UUID, sessionID string) (bool, error) {
	q := tx.Model(&model.EnrollmentModel{}).
		Where("enrollment_id = ? AND enrollment_status = ?", id, model.EnrollmentPending)
	if sessionID != "" {
		q = q.Where("(enrollment_checkout_session_id IS NULL OR enrollment_checkout_session_id = ?)", sessionID)
	}
	res := q.Updates(map[string]any{
		"enrollment_status":         model.EnrollmentExpired,
		"enrollment_payment_status": model.PaymentFailed,
	})
	return res.RowsAffected > 0, res.Error
}

// StaleSession: event milik checkout session lama, sudah diganti checkout baru.
func StaleSession(e *model.EnrollmentModel, sessionID string) bool {
	return sessionID != "" && e.EnrollmentCheckoutSessionID != nil &&
		*e.EnrollmentCheckoutSessionID != "" && *e.EnrollmentCheckoutSessionID != sessionID
}

// FindBySession dipakai kalau provider tidak bisa me-resolve enrollment id.
func FindBySession(tx *gorm.DB, sessionID string) (*model.EnrollmentModel, error) {
	var e model.EnrollmentModel
	err := tx.First(&e, "enrollment_checkout_session_id = ?", sessionID).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}
