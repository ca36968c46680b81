package route

import (
	"github.com/gofiber/fiber/v2"

	"tutorku_backend/internals/features/classes/classes/controller"
	"tutorku_backend/internals/features/classes/classes/service"
	userService "tutorku_backend/internals/features/users/user/service"
)

func ClassRoutes(r fiber.Router, classes *service.ClassService, users *userService.UserService, authMw fiber.Handler) {
	h := controller.NewClassController(classes, users)

	g := r.Group("/classes")
	g.Get("/preview/:code", h.Preview)

	g.Post("/", authMw, h.Create)
	g.Get("/", authMw, h.List)
	g.Post("/join", authMw, h.Join)
	g.Post("/leave", authMw, h.Leave)
	g.Get("/:id/members", authMw, h.Members)
}
