package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	classModel "tutorku_backend/internals/features/classes/classes/model"
	"tutorku_backend/internals/features/classes/enrollments/dto"
	"tutorku_backend/internals/features/classes/enrollments/model"
	userService "tutorku_backend/internals/features/users/user/service"
	helper "tutorku_backend/internals/helpers"
	"tutorku_backend/internals/testutil"
)

type fixture struct {
	svc     *EnrollmentService
	db      *gorm.DB
	fake    *testutil.FakeProvider
	tutor   *userService.TutorActor
	student *userService.StudentActor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	fake := &testutil.FakeProvider{}
	tu, tp := testutil.CreateTutor(t, db, "tutor@example.com", "TUTOR1")
	su, sp := testutil.CreateStudent(t, db, "student@example.com")
	return &fixture{
		svc:     NewEnrollmentService(db, fake, "https://app.test", 0),
		db:      db,
		fake:    fake,
		tutor:   &userService.TutorActor{User: tu, Tutor: tp},
		student: &userService.StudentActor{User: su, Student: sp},
	}
}

func (f *fixture) class(t *testing.T, pricePerHour int64, pkg *int64, hours int) classModel.ClassModel {
	t.Helper()
	c := classModel.ClassModel{
		ClassName:            "Kelas " + uuid.NewString()[:8],
		ClassSlug:            "kelas-" + uuid.NewString(),
		ClassCode:            helper.RandomCode(6),
		ClassTutorID:         f.tutor.Tutor.TutorID,
		ClassPricePerHour:    pricePerHour,
		ClassPackagePrice:    pkg,
		ClassDefaultHours:    hours,
		ClassCurrency:        "IDR",
		ClassRequiresPayment: pricePerHour > 0 || pkg != nil,
	}
	if err := f.db.Create(&c).Error; err != nil {
		t.Fatalf("create class: %v", err)
	}
	return c
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) model.EnrollmentModel {
	t.Helper()
	var e model.EnrollmentModel
	if err := f.db.First(&e, "enrollment_id = ?", id).Error; err != nil {
		t.Fatalf("reload enrollment: %v", err)
	}
	return e
}

func (f *fixture) activate(t *testing.T, id uuid.UUID) {
	t.Helper()
	if ok, err := ActivatePaid(f.db, id, time.Now().UTC()); err != nil || !ok {
		t.Fatalf("ActivatePaid = %v, %v", ok, err)
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestComputeAmount(t *testing.T) {
	if got := ComputeAmount(classModel.ClassModel{ClassPricePerHour: 500, ClassDefaultHours: 3}); got != 1500 {
		t.Fatalf("per hour = %d, want 1500", got)
	}
	pkg := classModel.ClassModel{ClassPricePerHour: 500, ClassDefaultHours: 3, ClassPackagePrice: int64Ptr(1200)}
	if got := ComputeAmount(pkg); got != 1200 {
		t.Fatalf("package = %d, want 1200", got)
	}
}

func TestEnrollCreatesPendingAndCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 2)

	out, err := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if out.Amount != 1000 || out.URL == "" {
		t.Fatalf("checkout = %+v", out)
	}

	e := f.reload(t, out.EnrollmentID)
	if e.EnrollmentStatus != model.EnrollmentPending || e.EnrollmentPaymentStatus != model.PaymentPending {
		t.Fatalf("status = %s/%s", e.EnrollmentStatus, e.EnrollmentPaymentStatus)
	}
	if e.EnrollmentTotalHours != 2 || e.EnrollmentHoursUsed != 0 {
		t.Fatalf("hours = %v/%d", e.EnrollmentHoursUsed, e.EnrollmentTotalHours)
	}
	months := e.EnrollmentExpiresAt.Sub(e.EnrollmentStartDate)
	if months < 180*24*time.Hour || months > 185*24*time.Hour {
		t.Fatalf("ttl = %v, want ~6 months", months)
	}
	if e.EnrollmentCheckoutSessionID == nil || *e.EnrollmentCheckoutSessionID != "cs_fake_1" {
		t.Fatalf("session id = %v", e.EnrollmentCheckoutSessionID)
	}

	req := f.fake.LastCheckout()
	if req.Metadata["enrollmentId"] != e.EnrollmentID.String() || req.EnrollmentID != e.EnrollmentID.String() {
		t.Fatalf("checkout metadata = %+v", req)
	}
	if !strings.HasSuffix(req.SuccessURL, "/student/classes/"+c.ClassID.String()+"?success=true") {
		t.Fatalf("success url = %s", req.SuccessURL)
	}
	if req.Email != "student@example.com" {
		t.Fatalf("email = %q", req.Email)
	}
}

func TestEnrollPendingReusesRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 2)

	first, err := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})
	if err != nil {
		t.Fatalf("second Enroll: %v", err)
	}
	if first.EnrollmentID != second.EnrollmentID {
		t.Fatal("pending enrollment was not reused")
	}
	if len(f.fake.Checkouts) != 2 {
		t.Fatalf("checkouts = %d, want 2", len(f.fake.Checkouts))
	}
	var n int64
	f.db.Model(&model.EnrollmentModel{}).Count(&n)
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestEnrollGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	paid := f.class(t, 0, int64Ptr(1200), 4)
	free := f.class(t, 0, nil, 1)

	if _, err := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: uuid.New()}); !helper.IsKind(err, helper.KindNotFound) {
		t.Fatalf("unknown class err = %v", err)
	}
	if _, err := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: free.ClassID}); !helper.IsKind(err, helper.KindInvalidOperation) {
		t.Fatalf("free class err = %v", err)
	}

	out, err := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: paid.ClassID})
	if err != nil || out.Amount != 1200 {
		t.Fatalf("package enroll = %+v, %v", out, err)
	}
	f.activate(t, out.EnrollmentID)
	if _, err := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: paid.ClassID}); !helper.IsKind(err, helper.KindConflict) {
		t.Fatalf("active enroll err = %v, want Conflict", err)
	}

	// ACTIVE yang lapsed tidak memblokir
	f.db.Model(&model.EnrollmentModel{}).Where("enrollment_id = ?", out.EnrollmentID).
		Update("enrollment_expires_at", time.Now().UTC().Add(-time.Hour))
	again, err := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: paid.ClassID})
	if err != nil || again.EnrollmentID == out.EnrollmentID {
		t.Fatalf("enroll after lapse = %+v, %v", again, err)
	}
}

func TestEnrollProviderDown(t *testing.T) {
	f := newFixture(t)
	c := f.class(t, 500, nil, 2)
	f.fake.FailCheckout = true
	if _, err := f.svc.Enroll(context.Background(), f.student, dto.EnrollRequest{ClassID: c.ClassID}); !helper.IsKind(err, helper.KindUpstreamFailure) {
		t.Fatalf("err = %v, want UpstreamFailure", err)
	}
}

func TestConcurrentEnrollSingleLiveRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 2)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil && !helper.IsKind(err, helper.KindConflict) {
			t.Fatalf("unexpected err %v", err)
		}
	}
	var n int64
	f.db.Model(&model.EnrollmentModel{}).
		Where("enrollment_class_id = ? AND enrollment_status IN ?", c.ClassID, liveStatuses).
		Count(&n)
	if n != 1 {
		t.Fatalf("live rows = %d, want 1", n)
	}
}

func TestReEnrollGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 2)

	out, _ := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})
	f.activate(t, out.EnrollmentID)
	if _, err := f.svc.ReEnroll(ctx, f.student, out.EnrollmentID); !helper.IsKind(err, helper.KindInvalidOperation) {
		t.Fatalf("re-enroll ACTIVE err = %v, want InvalidOperation", err)
	}

	if _, _, err := f.svc.UpdateHoursUsed(ctx, out.EnrollmentID, 2); err != nil {
		t.Fatal(err)
	}
	// harga berubah: re-enroll memakai harga baru
	f.db.Model(&classModel.ClassModel{}).Where("class_id = ?", c.ClassID).Update("class_price_per_hour", 700)

	renewed, err := f.svc.ReEnroll(ctx, f.student, out.EnrollmentID)
	if err != nil {
		t.Fatalf("ReEnroll: %v", err)
	}
	if renewed.EnrollmentID == out.EnrollmentID || renewed.Amount != 1400 {
		t.Fatalf("renewed = %+v", renewed)
	}
	e := f.reload(t, renewed.EnrollmentID)
	if e.EnrollmentHoursUsed != 0 || e.EnrollmentStatus != model.EnrollmentPending {
		t.Fatalf("renewed row = %+v", e)
	}

	other, otherProfile := testutil.CreateStudent(t, f.db, "other@example.com")
	stranger := &userService.StudentActor{User: other, Student: otherProfile}
	if _, err := f.svc.ReEnroll(ctx, stranger, out.EnrollmentID); !helper.IsKind(err, helper.KindNotFound) {
		t.Fatalf("foreign re-enroll err = %v, want NotFound", err)
	}
	if _, err := f.svc.ReEnroll(ctx, f.student, uuid.New()); !helper.IsKind(err, helper.KindNotFound) {
		t.Fatalf("missing re-enroll err = %v", err)
	}
}

func TestCheckStatusExpiresIdempotently(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 2)
	out, _ := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})
	f.activate(t, out.EnrollmentID)

	if st, err := f.svc.CheckStatus(ctx, out.EnrollmentID); err != nil || st != model.EnrollmentActive {
		t.Fatalf("fresh status = %s, %v", st, err)
	}

	f.svc.Now = func() time.Time { return time.Now().UTC().AddDate(0, 7, 0) }
	for i := 0; i < 2; i++ {
		st, err := f.svc.CheckStatus(ctx, out.EnrollmentID)
		if err != nil || st != model.EnrollmentExpired {
			t.Fatalf("call %d status = %s, %v", i, st, err)
		}
	}
	if e := f.reload(t, out.EnrollmentID); e.EnrollmentStatus != model.EnrollmentExpired || e.EnrollmentPaymentStatus != model.PaymentPaid {
		t.Fatalf("stored = %s/%s", e.EnrollmentStatus, e.EnrollmentPaymentStatus)
	}
}

func TestUpdateHoursUsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 3)
	out, _ := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})

	if _, _, err := f.svc.UpdateHoursUsed(ctx, out.EnrollmentID, 1); !helper.IsKind(err, helper.KindInvalidOperation) {
		t.Fatalf("pending hours err = %v", err)
	}
	f.activate(t, out.EnrollmentID)

	if _, _, err := f.svc.UpdateHoursUsed(ctx, out.EnrollmentID, 0); !helper.IsKind(err, helper.KindValidation) {
		t.Fatalf("zero delta err = %v", err)
	}
	e, exhausted, err := f.svc.UpdateHoursUsed(ctx, out.EnrollmentID, 1.5)
	if err != nil || exhausted || e.EnrollmentHoursUsed != 1.5 || e.HoursRemaining() != 1.5 {
		t.Fatalf("partial = %+v, %v, %v", e, exhausted, err)
	}
	e, exhausted, err = f.svc.UpdateHoursUsed(ctx, out.EnrollmentID, 2)
	if err != nil || !exhausted {
		t.Fatalf("exhaust = %v, %v", exhausted, err)
	}
	if e.EnrollmentStatus != model.EnrollmentExpired || e.EnrollmentHoursUsed != 3 {
		t.Fatalf("after exhaust = %s used=%v", e.EnrollmentStatus, e.EnrollmentHoursUsed)
	}
	if _, _, err := f.svc.UpdateHoursUsed(ctx, out.EnrollmentID, 1); !helper.IsKind(err, helper.KindInvalidOperation) {
		t.Fatalf("expired hours err = %v", err)
	}
	if _, _, err := f.svc.UpdateHoursUsed(ctx, uuid.New(), 1); !helper.IsKind(err, helper.KindNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestRecordHoursAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 3)
	out, _ := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})
	f.activate(t, out.EnrollmentID)

	if _, err := f.svc.RecordHours(ctx, f.student, out.EnrollmentID, 1); !helper.IsKind(err, helper.KindForbidden) {
		t.Fatalf("student err = %v", err)
	}
	ou, ot := testutil.CreateTutor(t, f.db, "other-tutor@example.com", "TUTOR2")
	if _, err := f.svc.RecordHours(ctx, &userService.TutorActor{User: ou, Tutor: ot}, out.EnrollmentID, 1); !helper.IsKind(err, helper.KindForbidden) {
		t.Fatalf("other tutor err = %v", err)
	}
	res, err := f.svc.RecordHours(ctx, f.tutor, out.EnrollmentID, 1)
	if err != nil || res.HoursUsed != 1 || res.HoursRemaining != 2 {
		t.Fatalf("owner tutor = %+v, %v", res, err)
	}
	if _, err := f.svc.RecordHours(ctx, &userService.SystemActor{User: ou}, out.EnrollmentID, 1); err != nil {
		t.Fatalf("system err = %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.class(t, 500, nil, 2)
	c2 := f.class(t, 500, nil, 2)
	old, _ := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c1.ClassID})
	fresh, _ := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c2.ClassID})
	f.activate(t, old.EnrollmentID)
	f.activate(t, fresh.EnrollmentID)
	f.db.Model(&model.EnrollmentModel{}).Where("enrollment_id = ?", old.EnrollmentID).
		Update("enrollment_expires_at", time.Now().UTC().Add(-time.Minute))

	n, err := f.svc.SweepExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep = %d, %v", n, err)
	}
	if e := f.reload(t, old.EnrollmentID); e.EnrollmentStatus != model.EnrollmentExpired {
		t.Fatalf("old = %s", e.EnrollmentStatus)
	}
	if e := f.reload(t, fresh.EnrollmentID); e.EnrollmentStatus != model.EnrollmentActive {
		t.Fatalf("fresh = %s", e.EnrollmentStatus)
	}
	if n, _ := f.svc.SweepExpired(ctx); n != 0 {
		t.Fatalf("second sweep = %d, want 0", n)
	}
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 2)
	out, _ := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})

	if item, err := f.svc.Get(ctx, f.student, out.EnrollmentID); err != nil || item.CheckoutURL == nil {
		t.Fatalf("owner get = %+v, %v", item, err)
	}
	if _, err := f.svc.Get(ctx, f.tutor, out.EnrollmentID); err != nil {
		t.Fatalf("tutor get: %v", err)
	}
	other, otherProfile := testutil.CreateStudent(t, f.db, "other@example.com")
	if _, err := f.svc.Get(ctx, &userService.StudentActor{User: other, Student: otherProfile}, out.EnrollmentID); !helper.IsKind(err, helper.KindNotFound) {
		t.Fatalf("stranger get err = %v", err)
	}
	list, err := f.svc.ListForStudent(ctx, f.student)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %+v, %v", list, err)
	}
}

func TestPaymentTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 2)
	out, _ := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})

	// FailPending lalu completed yang telat tetap mengaktifkan (belum pernah PAID)
	if ok, err := FailPending(f.db, out.EnrollmentID, ""); err != nil || !ok {
		t.Fatalf("FailPending = %v, %v", ok, err)
	}
	if ok, _ := FailPending(f.db, out.EnrollmentID, ""); ok {
		t.Fatal("FailPending applied twice")
	}
	f.activate(t, out.EnrollmentID)
	if ok, _ := ActivatePaid(f.db, out.EnrollmentID, time.Now().UTC()); ok {
		t.Fatal("ActivatePaid applied twice")
	}
	if ok, _ := FailPending(f.db, out.EnrollmentID, ""); ok {
		t.Fatal("FailPending touched an ACTIVE enrollment")
	}

	// EXPIRED yang sudah PAID tidak dihidupkan lagi
	f.db.Model(&model.EnrollmentModel{}).Where("enrollment_id = ?", out.EnrollmentID).
		Update("enrollment_status", model.EnrollmentExpired)
	if ok, _ := ActivatePaid(f.db, out.EnrollmentID, time.Now().UTC()); ok {
		t.Fatal("lapsed paid enrollment reactivated")
	}

	e, err := FindBySession(f.db, "cs_fake_1")
	if err != nil || e.EnrollmentID != out.EnrollmentID {
		t.Fatalf("FindBySession = %+v, %v", e, err)
	}
}

func TestTransitionsRespectSessionAndExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.class(t, 500, nil, 2)
	first, _ := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID})
	// checkout ulang untuk row PENDING yang sama -> cs_fake_2
	if _, err := f.svc.Enroll(ctx, f.student, dto.EnrollRequest{ClassID: c.ClassID}); err != nil {
		t.Fatalf("re-checkout: %v", err)
	}
	e := f.reload(t, first.EnrollmentID)
	if !StaleSession(&e, "cs_fake_1") || StaleSession(&e, "cs_fake_2") || StaleSession(&e, "") {
		t.Fatalf("StaleSession wrong for current session %v", *e.EnrollmentCheckoutSessionID)
	}
	if ok, err := FailPending(f.db, first.EnrollmentID, "cs_fake_1"); err != nil || ok {
		t.Fatalf("FailPending old session = %v, %v; want untouched", ok, err)
	}
	if e := f.reload(t, first.EnrollmentID); e.EnrollmentStatus != model.EnrollmentPending {
		t.Fatalf("status = %s, want PENDING", e.EnrollmentStatus)
	}
	if ok, err := FailPending(f.db, first.EnrollmentID, "cs_fake_2"); err != nil || !ok {
		t.Fatalf("FailPending current session = %v, %v", ok, err)
	}

	// bayar setelah expires_at lewat: tidak diaktifkan
	f.db.Model(&model.EnrollmentModel{}).Where("enrollment_id = ?", first.EnrollmentID).
		Update("enrollment_expires_at", time.Now().UTC().Add(-time.Hour))
	if ok, err := ActivatePaid(f.db, first.EnrollmentID, time.Now().UTC()); err != nil || ok {
		t.Fatalf("ActivatePaid after expiry = %v, %v; want untouched", ok, err)
	}
}
