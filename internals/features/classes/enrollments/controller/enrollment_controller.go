package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tutorku_backend/internals/features/classes/enrollments/dto"
	"tutorku_backend/internals/features/classes/enrollments/service"
	userController "tutorku_backend/internals/features/users/user/controller"
	userService "tutorku_backend/internals/features/users/user/service"
	helper "tutorku_backend/internals/helpers"
)

type EnrollmentController struct {
	Enrollments *service.EnrollmentService
	Users       *userService.UserService
}

func NewEnrollmentController(enrollments *service.EnrollmentService, users *userService.UserService) *EnrollmentController {
	return &EnrollmentController{Enrollments: enrollments, Users: users}
}

func (h *EnrollmentController) student(c *fiber.Ctx, feature string) (*userService.StudentActor, error) {
	actor, err := userController.ResolveActor(c, h.Users)
	if err != nil {
		return nil, err
	}
	return userService.RequireStudent(actor, feature)
}

func idParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return uuid.Nil, helper.Validation("invalid enrollment id", map[string][]string{"id": {"uuid"}})
	}
	return id, nil
}

// POST /enrollments
func (h *EnrollmentController) Enroll(c *fiber.Ctx) error {
	st, err := h.student(c, "enroll in a class")
	if err != nil {
		return err
	}
	var req dto.EnrollRequest
	if err := helper.ParseAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.Enrollments.Enroll(c.UserContext(), st, req)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "checkout created", out)
}

// POST /re-enroll
func (h *EnrollmentController) ReEnroll(c *fiber.Ctx) error {
	st, err := h.student(c, "renew an enrollment")
	if err != nil {
		return err
	}
	var req dto.ReEnrollRequest
	if err := helper.ParseAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.Enrollments.ReEnroll(c.UserContext(), st, req.EnrollmentID)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "checkout created", out)
}

// GET /enrollments
func (h *EnrollmentController) List(c *fiber.Ctx) error {
	st, err := h.student(c, "list enrollments")
	if err != nil {
		return err
	}
	rows, err := h.Enrollments.ListForStudent(c.UserContext(), st)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /enrollments/:id
func (h *EnrollmentController) Get(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	actor, err := userController.ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	out, err := h.Enrollments.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", out)
}

// POST /enrollments/:id/hours
func (h *EnrollmentController) RecordHours(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	actor, err := userController.ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	var req dto.RecordHoursRequest
	if err := helper.ParseAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.Enrollments.RecordHours(c.UserContext(), actor, id, req.Hours)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "hours recorded", out)
}
