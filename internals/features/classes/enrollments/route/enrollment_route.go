package route

import (
	"github.com/gofiber/fiber/v2"

	"tutorku_backend/internals/features/classes/enrollments/controller"
	"tutorku_backend/internals/features/classes/enrollments/service"
	userService "tutorku_backend/internals/features/users/user/service"
)

func EnrollmentRoutes(r fiber.Router, enrollments *service.EnrollmentService, users *userService.UserService, authMw fiber.Handler) {
	h := controller.NewEnrollmentController(enrollments, users)

	g := r.Group("/enrollments")
	g.Post("/", authMw, h.Enroll)
	g.Get("/", authMw, h.List)
	g.Get("/:id", authMw, h.Get)
	g.Post("/:id/hours", authMw, h.RecordHours)

	r.Post("/re-enroll", authMw, h.ReEnroll)
}
