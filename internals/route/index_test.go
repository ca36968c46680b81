package routes

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"tutorku_backend/internals/configs"
	helper "tutorku_backend/internals/helpers"
	"tutorku_backend/internals/testutil"
)

const secret = "route-test-secret"

type harness struct {
	t   *testing.T
	app *fiber.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.OpenDB(t)
	cfg := configs.Config{
		AppURL:              "https://app.test",
		JWTSecret:           secret,
		PaymentCurrency:     "IDR",
		EnrollmentTTLMonths: 6,
	}
	app := fiber.New(fiber.Config{
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: helper.ErrorHandler,
	})
	SetupRoutes(app, db, cfg, NewServices(db, cfg, &testutil.FakeProvider{}))
	return &harness{t: t, app: app}
}

func token(t *testing.T, id uuid.UUID, email, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": id.String(), "email": email, "exp": time.Now().Add(time.Hour).Unix()}
	if role != "" {
		claims["role"] = role
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// do mengirim request JSON dan mengembalikan status + field "data".
func (h *harness) do(method, path, tok string, body any) (int, map[string]any) {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := sonic.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := h.app.Test(req, -1)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var env struct {
		Data map[string]any `json:"data"`
	}
	_ = sonic.Unmarshal(raw, &env)
	return resp.StatusCode, env.Data
}

func TestTutorCreatesClassStudentJoins(t *testing.T) {
	h := newHarness(t)

	tutorID, studentID := uuid.New(), uuid.New()
	tutorTok := token(t, tutorID, "tutor@example.com", "")
	studentTok := token(t, studentID, "student@example.com", "")

	if st, _ := h.do(http.MethodPatch, "/api/v1/users/"+tutorID.String()+"/role", tutorTok, map[string]string{"role": "TUTOR"}); st != fiber.StatusOK {
		t.Fatalf("assign tutor = %d", st)
	}
	if st, _ := h.do(http.MethodPatch, "/api/v1/users/"+studentID.String()+"/role", studentTok, map[string]string{"role": "STUDENT"}); st != fiber.StatusOK {
		t.Fatalf("assign student = %d", st)
	}
	// role write-once
	if st, _ := h.do(http.MethodPatch, "/api/v1/users/"+studentID.String()+"/role", studentTok, map[string]string{"role": "TUTOR"}); st != fiber.StatusBadRequest {
		t.Fatalf("reassign = %d, want 400", st)
	}

	st, created := h.do(http.MethodPost, "/api/v1/classes", tutorTok, map[string]any{"name": "Aljabar Dasar"})
	if st != fiber.StatusCreated {
		t.Fatalf("create class = %d", st)
	}
	code, _ := created["code"].(string)
	if len(code) != 6 {
		t.Fatalf("class code = %q", code)
	}

	// student tidak boleh membuat kelas
	if st, _ := h.do(http.MethodPost, "/api/v1/classes", studentTok, map[string]any{"name": "X"}); st != fiber.StatusForbidden {
		t.Fatalf("student create class = %d, want 403", st)
	}

	if st, _ := h.do(http.MethodGet, "/api/v1/classes/preview/"+code, "", nil); st != fiber.StatusOK {
		t.Fatalf("preview = %d", st)
	}
	if st, _ := h.do(http.MethodPost, "/api/v1/classes/join", studentTok, map[string]string{"code": code}); st != fiber.StatusOK {
		t.Fatalf("join = %d", st)
	}
	if st, _ := h.do(http.MethodPost, "/api/v1/classes/join", studentTok, map[string]string{"code": code}); st != fiber.StatusBadRequest {
		t.Fatalf("join again = %d, want 400", st)
	}
}

func TestAuthAndOperatorGates(t *testing.T) {
	h := newHarness(t)

	if st, _ := h.do(http.MethodGet, "/api/v1/me", "", nil); st != fiber.StatusUnauthorized {
		t.Fatalf("me without token = %d, want 401", st)
	}
	userTok := token(t, uuid.New(), "user@example.com", "")
	if st, _ := h.do(http.MethodGet, "/api/v1/me", userTok, nil); st != fiber.StatusOK {
		t.Fatalf("me = %d", st)
	}
	if st, _ := h.do(http.MethodGet, "/api/v1/admin/payment-events", userTok, nil); st != fiber.StatusForbidden {
		t.Fatalf("admin events as user = %d, want 403", st)
	}
	adminTok := token(t, uuid.New(), "admin@example.com", "admin")
	if st, _ := h.do(http.MethodGet, "/api/v1/admin/payment-events", adminTok, nil); st != fiber.StatusOK {
		t.Fatalf("admin events as admin = %d", st)
	}
	// fake provider menolak semua webhook
	if st, _ := h.do(http.MethodPost, "/api/v1/webhooks/payment", "", map[string]string{"x": "y"}); st != fiber.StatusBadRequest {
		t.Fatalf("webhook = %d, want 400", st)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, err := h.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("health = %d", resp.StatusCode)
	}
}

func TestOverviewAndReferralRoutes(t *testing.T) {
	h := newHarness(t)

	tutorID, studentID := uuid.New(), uuid.New()
	tutorTok := token(t, tutorID, "tutor@example.com", "")
	studentTok := token(t, studentID, "student@example.com", "")
	adminTok := token(t, uuid.New(), "admin@example.com", "admin")
	h.do(http.MethodPatch, "/api/v1/users/"+tutorID.String()+"/role", tutorTok, map[string]string{"role": "TUTOR"})
	h.do(http.MethodPatch, "/api/v1/users/"+studentID.String()+"/role", studentTok, map[string]string{"role": "STUDENT"})

	if st, _ := h.do(http.MethodGet, "/api/v1/tutors/payments", tutorTok, nil); st != fiber.StatusOK {
		t.Fatalf("tutor payments = %d", st)
	}
	if st, _ := h.do(http.MethodGet, "/api/v1/tutors/payments", studentTok, nil); st != fiber.StatusForbidden {
		t.Fatalf("tutor payments as student = %d, want 403", st)
	}
	if st, _ := h.do(http.MethodGet, "/api/v1/admin/payments", studentTok, nil); st != fiber.StatusForbidden {
		t.Fatalf("admin payments as student = %d, want 403", st)
	}
	st, ov := h.do(http.MethodGet, "/api/v1/admin/payments", adminTok, nil)
	if st != fiber.StatusOK {
		t.Fatalf("admin payments = %d", st)
	}
	if _, ok := ov["total_revenue"]; !ok {
		t.Fatalf("overview = %+v", ov)
	}

	// student menerima undangan tutor -> muncul di pohon referral tutor
	_, inv := h.do(http.MethodPost, "/api/v1/invites", tutorTok, nil)
	code, _ := inv["code"].(string)
	if st, _ := h.do(http.MethodPost, "/api/v1/invites/"+code, studentTok, nil); st != fiber.StatusOK {
		t.Fatalf("accept = %d", st)
	}
	if st, _ := h.do(http.MethodGet, "/api/v1/invites/descendants", tutorTok, nil); st != fiber.StatusOK {
		t.Fatalf("descendants = %d", st)
	}
	if st, _ := h.do(http.MethodGet, "/api/v1/admin/referrals?email=tutor@example.com", studentTok, nil); st != fiber.StatusForbidden {
		t.Fatalf("referrals as student = %d, want 403", st)
	}
	st, tree := h.do(http.MethodGet, "/api/v1/admin/referrals?email=tutor@example.com", adminTok, nil)
	if st != fiber.StatusOK {
		t.Fatalf("referrals = %d", st)
	}
	if d, _ := tree["descendants"].([]any); len(d) != 1 {
		t.Fatalf("descendants = %+v", tree["descendants"])
	}
	if st, _ := h.do(http.MethodGet, "/api/v1/admin/referrals?email=nobody@example.com", adminTok, nil); st != fiber.StatusNotFound {
		t.Fatalf("unknown email = %d, want 404", st)
	}
}
