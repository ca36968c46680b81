package controller

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tutorku_backend/internals/features/finance/payments/dto"
	"tutorku_backend/internals/features/finance/payments/service"
	helper "tutorku_backend/internals/helpers"
)

type PaymentGatewayEventController struct {
	Payments *service.PaymentService
}

func NewPaymentGatewayEventController(payments *service.PaymentService) *PaymentGatewayEventController {
	return &PaymentGatewayEventController{Payments: payments}
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return uuid.Nil, helper.Validation("invalid "+name, map[string][]string{name: {"uuid"}})
	}
	return id, nil
}

func timeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, helper.Validation("invalid "+key+" (use RFC3339)", map[string][]string{key: {"rfc3339"}})
	}
	return &t, nil
}

/* =======================================================================
   List
   Query params:
     - provider: midtrans|stripe
     - status: received|processed|ignored|failed|rejected|duplicate
     - enrollment_id: uuid
     - start, end: RFC3339 (filter received_at)
     - page (default 1), per_page/limit (default 20, max 200)
======================================================================= */

// GET /admin/payment-events
func (h *PaymentGatewayEventController) ListEvents(c *fiber.Ctx) error {
	q := dto.ListGatewayEventsQuery{
		Provider: strings.TrimSpace(c.Query("provider")),
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if eid := strings.TrimSpace(c.Query("enrollment_id")); eid != "" {
		id, err := uuid.Parse(eid)
		if err != nil {
			return helper.Validation("invalid enrollment_id", map[string][]string{"enrollment_id": {"uuid"}})
		}
		q.EnrollmentID = &id
	}
	var err error
	if q.Start, err = timeQuery(c, "start"); err != nil {
		return err
	}
	if q.End, err = timeQuery(c, "end"); err != nil {
		return err
	}

	paging := helper.ResolvePaging(c, 20, 200)
	q.Offset, q.Limit = paging.Offset, paging.Limit

	rows, total, err := h.Payments.ListEvents(c.UserContext(), q)
	if err != nil {
		return err
	}
	out := make([]dto.PaymentGatewayEventResponse, 0, len(rows))
	for i := range rows {
		out = append(out, dto.FromModelPGW(&rows[i], false))
	}
	return helper.JsonList(c, "ok", out, helper.BuildPaginationFromPage(total, paging.Page, paging.PerPage, len(out)))
}

// GET /admin/payment-events/:id
func (h *PaymentGatewayEventController) GetByID(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.Payments.GetEvent(c.UserContext(), id)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", dto.FromModelPGW(m, true))
}

// POST /admin/payment-events/:id/replay
func (h *PaymentGatewayEventController) Replay(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.Payments.Replay(c.UserContext(), id)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "event replayed", dto.FromModelPGW(m, false))
}

// GET /admin/enrollments/:id/payments
func (h *PaymentGatewayEventController) ListPayments(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.Payments.ListPayments(c.UserContext(), id)
	if err != nil {
		return err
	}
	out := make([]dto.PaymentResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.FromPaymentModel(r))
	}
	return helper.JsonOK(c, "ok", out)
}
