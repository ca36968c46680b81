package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tutorku_backend/internals/features/users/user/dto"
	"tutorku_backend/internals/features/users/user/service"
	helper "tutorku_backend/internals/helpers"
	helperAuth "tutorku_backend/internals/helpers/auth"
)

type UserController struct {
	Users *service.UserService
}

func NewUserController(users *service.UserService) *UserController {
	return &UserController{Users: users}
}

// ResolveActor dipakai controller lain juga.
func ResolveActor(c *fiber.Ctx, users *service.UserService) (service.Actor, error) {
	p, err := helperAuth.GetPrincipal(c)
	if err != nil {
		return nil, err
	}
	return users.ResolveActor(c.UserContext(), p)
}

// PATCH /users/:id/role
func (h *UserController) AssignRole(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return helper.Validation("invalid user id", map[string][]string{"id": {"uuid"}})
	}

	actor, err := ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	if actor.UserID() != targetID && !service.IsOperator(actor) {
		return helper.Forbidden("cannot assign a role to another user")
	}

	var req dto.AssignRoleRequest
	if err := helper.ParseAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.Users.AssignRole(c.UserContext(), targetID, req.Role)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "role assigned", out)
}

// POST /tutors/onboarding
func (h *UserController) TutorOnboarding(c *fiber.Ctx) error {
	actor, err := ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	tutor, err := service.RequireTutor(actor, "onboarding tutor")
	if err != nil {
		return err
	}

	var req dto.TutorOnboardingRequest
	if len(c.Body()) > 0 {
		if err := helper.ParseAndValidate(c, &req); err != nil {
			return err
		}
	}

	out, err := h.Users.LinkRecruiter(c.UserContext(), tutor, req.InviteCode)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "onboarding completed", out)
}

// GET /me
func (h *UserController) Me(c *fiber.Ctx) error {
	actor, err := ResolveActor(c, h.Users)
	if err != nil {
		return err
	}
	out, err := h.Users.Me(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", out)
}
