package route

import (
	"github.com/gofiber/fiber/v2"

	"tutorku_backend/internals/features/users/user/controller"
	"tutorku_backend/internals/features/users/user/service"
)

// UserRoutes: semua butuh login (authMw).
func UserRoutes(r fiber.Router, users *service.UserService, authMw fiber.Handler) {
	h := controller.NewUserController(users)

	r.Get("/me", authMw, h.Me)
	r.Patch("/users/:id/role", authMw, h.AssignRole)
	r.Post("/tutors/onboarding", authMw, h.TutorOnboarding)
}
