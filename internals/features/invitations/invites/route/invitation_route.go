package route

import (
	"github.com/gofiber/fiber/v2"

	"tutorku_backend/internals/constants"
	"tutorku_backend/internals/features/invitations/invites/controller"
	"tutorku_backend/internals/features/invitations/invites/service"
	authMiddleware "tutorku_backend/internals/middlewares/auth"
)

// InvitationRoutes: /invites/children dan /invites/descendants harus didaftarkan sebelum /invites/:code.
func InvitationRoutes(r fiber.Router, invites *service.InvitationService, authMw fiber.Handler) {
	h := controller.NewInvitationController(invites)

	g := r.Group("/invites")
	g.Post("/", authMw, h.Create)
	g.Get("/", authMw, h.List)
	g.Get("/children", authMw, h.Children)
	g.Get("/descendants", authMw, h.Descendants)

	// public
	g.Get("/:code", h.Get)
	g.Get("/:code/qr", h.QR)

	g.Post("/:code", authMw, h.Accept)
	g.Delete("/:id", authMw, h.Delete)

	r.Get("/admin/referrals",
		authMw,
		authMiddleware.OnlyRoles(constants.RoleErrorAdmin("referral tree"), constants.OperatorRoles...),
		h.ReferralTree,
	)
}
