package route

import (
	"github.com/gofiber/fiber/v2"

	"tutorku_backend/internals/constants"
	"tutorku_backend/internals/features/finance/payments/controller"
	"tutorku_backend/internals/features/finance/payments/service"
	userService "tutorku_backend/internals/features/users/user/service"
	authMiddleware "tutorku_backend/internals/middlewares/auth"
)

// PaymentRoutes: webhook publik (diverifikasi lewat signature provider)
// + endpoint admin untuk audit log gateway dan ringkasan pembayaran.
func PaymentRoutes(r fiber.Router, payments *service.PaymentService, users *userService.UserService, authMw fiber.Handler) {
	wh := controller.NewPaymentController(payments)
	r.Post("/webhooks/payment", wh.Webhook)

	h := controller.NewPaymentGatewayEventController(payments)
	admin := r.Group("/admin",
		authMw,
		authMiddleware.OnlyRoles(constants.RoleErrorAdmin("payment events"), constants.OperatorRoles...),
	)
	admin.Get("/payment-events", h.ListEvents)
	admin.Get("/payment-events/:id", h.GetByID)
	admin.Post("/payment-events/:id/replay", h.Replay)
	admin.Get("/enrollments/:id/payments", h.ListPayments)

	ov := controller.NewPaymentOverviewController(payments, users)
	admin.Get("/payments", ov.AdminOverview)
	r.Get("/tutors/payments", authMw, ov.TutorPayments)
}
