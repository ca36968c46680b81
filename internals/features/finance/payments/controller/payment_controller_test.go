package controller

import (
	"bytes"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tutorku_backend/internals/features/finance/payments/dto"
	"tutorku_backend/internals/features/finance/payments/gateway"
	"tutorku_backend/internals/features/finance/payments/model"
	"tutorku_backend/internals/features/finance/payments/service"
	helper "tutorku_backend/internals/helpers"
	"tutorku_backend/internals/testutil"
)

const serverKey = "SB-Mid-server-test"

func newApp(t *testing.T) (*fiber.App, *service.PaymentService) {
	t.Helper()
	db := testutil.OpenDB(t)
	svc := service.NewPaymentService(db, gateway.NewMidtrans(serverKey, false))

	app := fiber.New(fiber.Config{ErrorHandler: helper.ErrorHandler})
	wh := NewPaymentController(svc)
	admin := NewPaymentGatewayEventController(svc)
	app.Post("/webhooks/payment", wh.Webhook)
	app.Get("/admin/payment-events", admin.ListEvents)
	app.Get("/admin/payment-events/:id", admin.GetByID)
	return app, svc
}

func notification(orderID, key string) []byte {
	sig := gateway.MidtransSignature(orderID, "200", "1000.00", key)
	return []byte(fmt.Sprintf(
		`{"transaction_status":"settlement","status_code":"200","signature_key":%q,"order_id":%q,"gross_amount":"1000.00","transaction_id":"trx-1"}`,
		sig, orderID,
	))
}

func post(t *testing.T, app *fiber.App, body []byte) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func TestWebhookHTTP(t *testing.T) {
	app, _ := newApp(t)
	// enrollment tidak ada: event tetap 200 (ignored), tidak di-retry provider
	orderID := uuid.NewString() + "-ab12cd"

	status, body := post(t, app, notification(orderID, serverKey))
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body = %s", status, body)
	}
	var ack dto.WebhookAck
	if err := sonic.Unmarshal(body, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Received || ack.Duplicate {
		t.Fatalf("ack = %+v", ack)
	}

	status, body = post(t, app, notification(orderID, serverKey))
	if status != fiber.StatusOK {
		t.Fatalf("redelivery status = %d", status)
	}
	_ = sonic.Unmarshal(body, &ack)
	if !ack.Duplicate {
		t.Fatalf("redelivery ack = %+v, want duplicate", ack)
	}

	status, _ = post(t, app, notification(orderID, "wrong-key"))
	if status != fiber.StatusBadRequest {
		t.Fatalf("bad signature status = %d, want 400", status)
	}
}

func TestListEventsHTTP(t *testing.T) {
	app, svc := newApp(t)
	post(t, app, notification(uuid.NewString()+"-ab12cd", serverKey))
	post(t, app, []byte("garbage"))

	resp, err := app.Test(httptest.NewRequest("GET", "/admin/payment-events?status=rejected&per_page=5", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Data       []dto.PaymentGatewayEventResponse `json:"data"`
		Pagination helper.Pagination                 `json:"pagination"`
	}
	b, _ := io.ReadAll(resp.Body)
	if err := sonic.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode: %v (%s)", err, b)
	}
	if len(out.Data) != 1 || out.Pagination.Total != 1 || out.Pagination.PerPage != 5 {
		t.Fatalf("list = %+v", out)
	}

	rows, _, _ := svc.ListEvents(t.Context(), dto.ListGatewayEventsQuery{Status: string(model.GatewayEventStatusRejected), Limit: 1})
	resp, _ = app.Test(httptest.NewRequest("GET", "/admin/payment-events/"+rows[0].GatewayEventID.String(), nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/admin/payment-events/not-a-uuid", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/admin/payment-events?start=yesterday", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("bad start status = %d, want 400", resp.StatusCode)
	}
}
