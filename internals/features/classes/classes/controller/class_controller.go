package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tutorku_backend/internals/features/classes/classes/dto"
	"tutorku_backend/internals/features/classes/classes/service"
	userController "tutorku_backend/internals/features/users/user/controller"
	userService "tutorku_backend/internals/features/users/user/service"
	helper "tutorku_backend/internals/helpers"
)

type ClassController struct {
	Classes *service.ClassService
	Users   *userService.UserService
}

func NewClassController(classes *service.ClassService, users *userService.UserService) *ClassController {
	return &ClassController{Classes: classes, Users: users}
}

// POST /classes
func (h *ClassController) Create(c *fiber.Ctx) error {
	actor, err := userController.ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	tutor, err := userService.RequireTutor(actor, "create a class")
	if err != nil {
		return err
	}

	var req dto.CreateClassRequest
	if err := helper.ParseAndValidate(c, &req); err != nil {
		return err
	}
	class, err := h.Classes.Create(c.UserContext(), tutor, req)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "class created", dto.CreateClassResponse{
		ClassID: class.ClassID,
		Slug:    class.ClassSlug,
		Code:    class.ClassCode,
	})
}

// GET /classes
func (h *ClassController) List(c *fiber.Ctx) error {
	actor, err := userController.ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	rows, err := h.Classes.ListForActor(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /classes/preview/:code (public)
func (h *ClassController) Preview(c *fiber.Ctx) error {
	code := helper.NormalizeCode(c.Params("code"))
	if !helper.IsValidCode(code) {
		return helper.Validation("invalid class code", map[string][]string{"code": {"len=6"}})
	}
	out, err := h.Classes.Preview(c.UserContext(), code)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", out)
}

// POST /classes/join
func (h *ClassController) Join(c *fiber.Ctx) error {
	actor, err := userController.ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	student, err := userService.RequireStudent(actor, "join a class")
	if err != nil {
		return err
	}

	var req dto.JoinClassRequest
	if err := helper.ParseAndValidate(c, &req); err != nil {
		return err
	}
	class, err := h.Classes.JoinByCode(c.UserContext(), student, req.Code)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "joined class", fiber.Map{"class_id": class.ClassID, "slug": class.ClassSlug})
}

// POST /classes/leave
func (h *ClassController) Leave(c *fiber.Ctx) error {
	actor, err := userController.ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	var req dto.LeaveClassRequest
	if err := helper.ParseAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.Classes.Leave(c.UserContext(), actor.UserID(), req.ClassID); err != nil {
		return err
	}
	return helper.JsonOK(c, "left class", fiber.Map{"class_id": req.ClassID})
}

// GET /classes/:id/members
func (h *ClassController) Members(c *fiber.Ctx) error {
	classID, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return helper.Validation("invalid class id", map[string][]string{"id": {"uuid"}})
	}
	actor, err := userController.ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	rows, err := h.Classes.ListMembers(c.UserContext(), actor, classID)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", rows)
}
