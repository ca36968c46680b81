package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	classModel "tutorku_backend/internals/features/classes/classes/model"
	enrollmentDTO "tutorku_backend/internals/features/classes/enrollments/dto"
	enrollmentModel "tutorku_backend/internals/features/classes/enrollments/model"
	enrollmentService "tutorku_backend/internals/features/classes/enrollments/service"
	"tutorku_backend/internals/features/finance/payments/gateway"
	"tutorku_backend/internals/features/finance/payments/model"
	userService "tutorku_backend/internals/features/users/user/service"
	helper "tutorku_backend/internals/helpers"
	"tutorku_backend/internals/testutil"
)

type fixture struct {
	db          *gorm.DB
	fake        *testutil.FakeProvider
	enrollments *enrollmentService.EnrollmentService
	student     *userService.StudentActor
	class       classModel.ClassModel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	fake := &testutil.FakeProvider{}
	_, tp := testutil.CreateTutor(t, db, "tutor@example.com", "TUTOR1")
	su, sp := testutil.CreateStudent(t, db, "student@example.com")

	c := classModel.ClassModel{
		ClassName:            "Matematika",
		ClassSlug:            "matematika",
		ClassCode:            "MATH01",
		ClassTutorID:         tp.TutorID,
		ClassPricePerHour:    1000,
		ClassDefaultHours:    1,
		ClassCurrency:        "IDR",
		ClassRequiresPayment: true,
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create class: %v", err)
	}
	return &fixture{
		db:          db,
		fake:        fake,
		enrollments: enrollmentService.NewEnrollmentService(db, fake, "https://app.test", 6),
		student:     &userService.StudentActor{User: su, Student: sp},
		class:       c,
	}
}

// enroll membuat enrollment PENDING lewat checkout fake.
func (f *fixture) enroll(t *testing.T) uuid.UUID {
	t.Helper()
	out, err := f.enrollments.Enroll(context.Background(), f.student, enrollmentDTO.EnrollRequest{ClassID: f.class.ClassID})
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	return out.EnrollmentID
}

// enrollOther: enrollment PENDING di kelas kedua milik tutor yang sama.
func (f *fixture) enrollOther(t *testing.T) uuid.UUID {
	t.Helper()
	c := f.class
	c.ClassID = uuid.Nil
	c.ClassSlug, c.ClassCode = "matematika-2", "MATH02"
	if err := f.db.Create(&c).Error; err != nil {
		t.Fatalf("create class: %v", err)
	}
	out, err := f.enrollments.Enroll(context.Background(), f.student, enrollmentDTO.EnrollRequest{ClassID: c.ClassID})
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	return out.EnrollmentID
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) enrollmentModel.EnrollmentModel {
	t.Helper()
	var e enrollmentModel.EnrollmentModel
	if err := f.db.First(&e, "enrollment_id = ?", id).Error; err != nil {
		t.Fatalf("reload enrollment: %v", err)
	}
	return e
}

func (f *fixture) countPayments(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.PaymentModel{}).Where("payment_enrollment_id = ?", id).Count(&n).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	return n
}

func completedEvent(id uuid.UUID) *gateway.Event {
	return &gateway.Event{
		Provider:     "fake",
		ExternalID:   "evt_completed_1",
		Type:         "checkout.session.completed",
		Kind:         gateway.KindCheckoutCompleted,
		EnrollmentID: id.String(),
		SessionID:    "cs_fake_1",
		PaymentRef:   "pi_1",
		Amount:       1000,
		Currency:     "IDR",
	}
}

func TestReconcileCompletedActivates(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.db, f.fake)
	ctx := context.Background()
	id := f.enroll(t)

	out, err := svc.Reconcile(ctx, completedEvent(id))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.Status != model.GatewayEventStatusProcessed || out.EnrollmentID == nil || *out.EnrollmentID != id {
		t.Fatalf("outcome = %+v", out)
	}

	e := f.reload(t, id)
	if e.EnrollmentStatus != enrollmentModel.EnrollmentActive || e.EnrollmentPaymentStatus != enrollmentModel.PaymentPaid {
		t.Fatalf("enrollment = %s/%s, want ACTIVE/PAID", e.EnrollmentStatus, e.EnrollmentPaymentStatus)
	}
	if n := f.countPayments(t, id); n != 1 {
		t.Fatalf("payments = %d, want 1", n)
	}

	var p model.PaymentModel
	if err := f.db.First(&p, "payment_enrollment_id = ?", id).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if p.PaymentAmount != 1000 || p.PaymentStatus != model.PaymentStatusPaid || p.PaymentExternalRef != "pi_1" {
		t.Fatalf("payment = %+v", p)
	}

	var members int64
	f.db.Model(&classModel.ClassMemberModel{}).
		Where("class_member_user_id = ? AND class_member_class_id = ?", f.student.User.ID, f.class.ClassID).
		Count(&members)
	if members != 1 {
		t.Fatalf("class members = %d, want 1", members)
	}

	// redelivery: tidak ada efek tambahan
	if _, err := svc.Reconcile(ctx, completedEvent(id)); err != nil {
		t.Fatalf("Reconcile again: %v", err)
	}
	if n := f.countPayments(t, id); n != 1 {
		t.Fatalf("payments after redelivery = %d, want 1", n)
	}
}

func TestReconcileExpiredNeverDowngradesActive(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.db, f.fake)
	ctx := context.Background()
	id := f.enroll(t)

	if _, err := svc.Reconcile(ctx, completedEvent(id)); err != nil {
		t.Fatalf("Reconcile completed: %v", err)
	}
	expired := &gateway.Event{Provider: "fake", ExternalID: "evt_exp", Kind: gateway.KindCheckoutExpired, EnrollmentID: id.String()}
	if _, err := svc.Reconcile(ctx, expired); err != nil {
		t.Fatalf("Reconcile expired: %v", err)
	}
	if e := f.reload(t, id); e.EnrollmentStatus != enrollmentModel.EnrollmentActive {
		t.Fatalf("status = %s, want ACTIVE", e.EnrollmentStatus)
	}
}

func TestReconcileExpiredFailsPending(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.db, f.fake)
	id := f.enroll(t)

	expired := &gateway.Event{Provider: "fake", ExternalID: "evt_exp", Kind: gateway.KindCheckoutExpired, EnrollmentID: id.String()}
	if _, err := svc.Reconcile(context.Background(), expired); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	e := f.reload(t, id)
	if e.EnrollmentStatus != enrollmentModel.EnrollmentExpired || e.EnrollmentPaymentStatus != enrollmentModel.PaymentFailed {
		t.Fatalf("enrollment = %s/%s, want EXPIRED/FAILED", e.EnrollmentStatus, e.EnrollmentPaymentStatus)
	}
	if n := f.countPayments(t, id); n != 0 {
		t.Fatalf("payments = %d, want 0", n)
	}
}

func TestReconcilePaymentFailedResolvesViaProvider(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.db, f.fake)
	id := f.enroll(t)
	f.fake.Resolved = map[string]string{"pi_9": id.String()}

	ev := &gateway.Event{
		Provider:   "fake",
		ExternalID: "evt_fail",
		Type:       "payment_intent.payment_failed",
		Kind:       gateway.KindPaymentFailed,
		PaymentRef: "pi_9",
		Amount:     1000,
		Currency:   "IDR",
	}
	out, err := svc.Reconcile(context.Background(), ev)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.EnrollmentID == nil || *out.EnrollmentID != id {
		t.Fatalf("outcome = %+v", out)
	}
	if e := f.reload(t, id); e.EnrollmentStatus != enrollmentModel.EnrollmentExpired {
		t.Fatalf("status = %s, want EXPIRED", e.EnrollmentStatus)
	}
	rows, err := svc.ListPayments(context.Background(), id)
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(rows) != 1 || rows[0].PaymentStatus != model.PaymentStatusFailed {
		t.Fatalf("payments = %+v", rows)
	}
}

func TestReconcileRefundKeepsEnrollment(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.db, f.fake)
	ctx := context.Background()
	id := f.enroll(t)

	if _, err := svc.Reconcile(ctx, completedEvent(id)); err != nil {
		t.Fatalf("Reconcile completed: %v", err)
	}
	refund := &gateway.Event{Provider: "fake", ExternalID: "evt_ref", Kind: gateway.KindRefunded, EnrollmentID: id.String(), PaymentRef: "pi_1"}
	if _, err := svc.Reconcile(ctx, refund); err != nil {
		t.Fatalf("Reconcile refund: %v", err)
	}
	if e := f.reload(t, id); e.EnrollmentStatus != enrollmentModel.EnrollmentActive {
		t.Fatalf("status = %s, want ACTIVE", e.EnrollmentStatus)
	}
	if n := f.countPayments(t, id); n != 2 {
		t.Fatalf("payments = %d, want 2 (PAID + REFUNDED)", n)
	}
}

func TestReconcileIgnoresUnknownEnrollment(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.db, f.fake)

	tests := []struct {
		name string
		ev   *gateway.Event
	}{
		{"no id", &gateway.Event{Provider: "fake", ExternalID: "a", Kind: gateway.KindCheckoutCompleted}},
		{"missing row", &gateway.Event{Provider: "fake", ExternalID: "b", Kind: gateway.KindCheckoutCompleted, EnrollmentID: uuid.NewString()}},
		{"unhandled type", &gateway.Event{Provider: "fake", ExternalID: "c", Kind: gateway.KindIgnored, Type: "charge.updated"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.Reconcile(context.Background(), tt.ev)
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if out.Status != model.GatewayEventStatusIgnored {
				t.Fatalf("status = %s, want ignored", out.Status)
			}
		})
	}
}

func TestListPaymentsEmpty(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.db, f.fake)
	rows, err := svc.ListPayments(context.Background(), uuid.New())
	if err != nil || len(rows) != 0 {
		t.Fatalf("ListPayments = %v, %v", rows, err)
	}
	if _, err := svc.GetEvent(context.Background(), uuid.New()); !helper.IsKind(err, helper.KindNotFound) {
		t.Fatalf("GetEvent missing = %v, want NotFound", err)
	}
}

func TestReconcileStaleSessionDoesNotFailCurrentCheckout(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.db, f.fake)
	ctx := context.Background()
	id := f.enroll(t) // cs_fake_1
	if again := f.enroll(t); again != id { // checkout ulang, row yang sama -> cs_fake_2
		t.Fatalf("re-checkout created new enrollment %s", again)
	}

	expired := &gateway.Event{Provider: "fake", ExternalID: "evt_exp_old", Kind: gateway.KindCheckoutExpired,
		EnrollmentID: id.String(), SessionID: "cs_fake_1"}
	out, err := svc.Reconcile(ctx, expired)
	if err != nil {
		t.Fatalf("Reconcile expired: %v", err)
	}
	if out.Status != model.GatewayEventStatusIgnored || out.Note != "stale checkout session" {
		t.Fatalf("outcome = %+v, want ignored stale session", out)
	}
	if e := f.reload(t, id); e.EnrollmentStatus != enrollmentModel.EnrollmentPending {
		t.Fatalf("status after old session expiry = %s, want PENDING", e.EnrollmentStatus)
	}

	failed := &gateway.Event{Provider: "fake", ExternalID: "evt_fail_old", Kind: gateway.KindPaymentFailed,
		EnrollmentID: id.String(), SessionID: "cs_fake_1", PaymentRef: "pi_old"}
	if out, err := svc.Reconcile(ctx, failed); err != nil || out.Note != "stale checkout session" {
		t.Fatalf("Reconcile failed = %+v, %v", out, err)
	}
	if e := f.reload(t, id); e.EnrollmentStatus != enrollmentModel.EnrollmentPending {
		t.Fatalf("status after old session failure = %s, want PENDING", e.EnrollmentStatus)
	}

	// enroll lagi tetap memakai row yang sama, tidak ada row hidup kedua
	if again := f.enroll(t); again != id {
		t.Fatalf("enroll created new enrollment %s", again)
	}

	completed := completedEvent(id)
	completed.SessionID = "cs_fake_2"
	if _, err := svc.Reconcile(ctx, completed); err != nil {
		t.Fatalf("Reconcile completed: %v", err)
	}
	e := f.reload(t, id)
	if e.EnrollmentStatus != enrollmentModel.EnrollmentActive || e.EnrollmentPaymentStatus != enrollmentModel.PaymentPaid {
		t.Fatalf("enrollment = %s/%s, want ACTIVE/PAID", e.EnrollmentStatus, e.EnrollmentPaymentStatus)
	}
	var rows int64
	f.db.Model(&enrollmentModel.EnrollmentModel{}).Where("enrollment_student_id = ?", f.student.Student.StudentID).Count(&rows)
	if rows != 1 {
		t.Fatalf("enrollment rows = %d, want 1", rows)
	}

	// expired untuk session yang berlaku tetap diterapkan ke PENDING lain
	id2 := f.enrollOther(t)
	cur := f.reload(t, id2)
	expiredCur := &gateway.Event{Provider: "fake", ExternalID: "evt_exp_cur", Kind: gateway.KindCheckoutExpired,
		EnrollmentID: id2.String(), SessionID: *cur.EnrollmentCheckoutSessionID}
	if out, err := svc.Reconcile(ctx, expiredCur); err != nil || out.Status != model.GatewayEventStatusProcessed {
		t.Fatalf("Reconcile current expiry = %+v, %v", out, err)
	}
	if e := f.reload(t, id2); e.EnrollmentStatus != enrollmentModel.EnrollmentExpired {
		t.Fatalf("status = %s, want EXPIRED", e.EnrollmentStatus)
	}
}

func TestReconcileCompletedAfterExpiryIsNoted(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.db, f.fake)
	id := f.enroll(t)
	f.db.Model(&enrollmentModel.EnrollmentModel{}).Where("enrollment_id = ?", id).Updates(map[string]any{
		"enrollment_status":     enrollmentModel.EnrollmentExpired,
		"enrollment_expires_at": time.Now().UTC().Add(-time.Hour),
	})

	out, err := svc.Reconcile(context.Background(), completedEvent(id))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.Status != model.GatewayEventStatusProcessed || out.Note != "paid after expiry" {
		t.Fatalf("outcome = %+v, want processed with paid-after-expiry note", out)
	}
	if e := f.reload(t, id); e.EnrollmentStatus != enrollmentModel.EnrollmentExpired {
		t.Fatalf("status = %s, want EXPIRED", e.EnrollmentStatus)
	}
	if n := f.countPayments(t, id); n != 1 {
		t.Fatalf("payments = %d, want 1", n)
	}
}
