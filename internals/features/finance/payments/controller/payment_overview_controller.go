package controller

import (
	"github.com/gofiber/fiber/v2"

	"tutorku_backend/internals/features/finance/payments/service"
	userController "tutorku_backend/internals/features/users/user/controller"
	userService "tutorku_backend/internals/features/users/user/service"
	helper "tutorku_backend/internals/helpers"
)

type PaymentOverviewController struct {
	Payments *service.PaymentService
	Users    *userService.UserService
}

func NewPaymentOverviewController(payments *service.PaymentService, users *userService.UserService) *PaymentOverviewController {
	return &PaymentOverviewController{Payments: payments, Users: users}
}

// GET /tutors/payments
func (h *PaymentOverviewController) TutorPayments(c *fiber.Ctx) error {
	actor, err := userController.ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	tutor, err := userService.RequireTutor(actor, "payments")
	if err != nil {
		return err
	}
	rows, err := h.Payments.ListForTutor(c.UserContext(), tutor.Tutor.TutorID)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /admin/payments
func (h *PaymentOverviewController) AdminOverview(c *fiber.Ctx) error {
	out, err := h.Payments.AdminOverview(c.UserContext())
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", out)
}
