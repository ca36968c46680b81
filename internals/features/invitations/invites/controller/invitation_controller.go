package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tutorku_backend/internals/features/invitations/invites/dto"
	"tutorku_backend/internals/features/invitations/invites/service"
	helper "tutorku_backend/internals/helpers"
	helperAuth "tutorku_backend/internals/helpers/auth"
)

type InvitationController struct {
	Invites *service.InvitationService
}

func NewInvitationController(invites *service.InvitationService) *InvitationController {
	return &InvitationController{Invites: invites}
}

func codeParam(c *fiber.Ctx) (string, error) {
	code := helper.NormalizeCode(c.Params("code"))
	if !helper.IsValidCode(code) {
		return "", helper.Validation("invalid invitation code", map[string][]string{"code": {"len=6"}})
	}
	return code, nil
}

// POST /invites
func (h *InvitationController) Create(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserID(c)
	if err != nil {
		return err
	}
	inv, err := h.Invites.Create(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return helper.JsonCreated(c, "invitation created", dto.InviteCodeResponse{
		InvitationID: inv.InvitationID,
		Code:         inv.InvitationCode,
	})
}

// GET /invites
func (h *InvitationController) List(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserID(c)
	if err != nil {
		return err
	}
	rows, err := h.Invites.ListByInviter(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /invites/children
func (h *InvitationController) Children(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserID(c)
	if err != nil {
		return err
	}
	rows, err := h.Invites.ListChildren(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", rows)
}

// GET /invites/descendants
func (h *InvitationController) Descendants(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserID(c)
	if err != nil {
		return err
	}
	tree, err := h.Invites.ListDescendants(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", tree)
}

// GET /admin/referrals?email= (ADMIN/SYSTEM)
func (h *InvitationController) ReferralTree(c *fiber.Ctx) error {
	out, err := h.Invites.DescendantsByEmail(c.UserContext(), c.Query("email"))
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", out)
}

// GET /invites/:code (public)
func (h *InvitationController) Get(c *fiber.Ctx) error {
	code, err := codeParam(c)
	if err != nil {
		return err
	}
	out, err := h.Invites.GetByCode(c.UserContext(), code)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "ok", out)
}

// GET /invites/:code/qr (public)
func (h *InvitationController) QR(c *fiber.Ctx) error {
	code, err := codeParam(c)
	if err != nil {
		return err
	}
	png, err := h.Invites.QR(c.UserContext(), code)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return c.Send(png)
}

// POST /invites/:code (accept)
func (h *InvitationController) Accept(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserID(c)
	if err != nil {
		return err
	}
	code, err := codeParam(c)
	if err != nil {
		return err
	}
	inv, err := h.Invites.Accept(c.UserContext(), code, userID)
	if err != nil {
		return err
	}
	return helper.JsonOK(c, "invitation accepted", fiber.Map{
		"invitation_id": inv.InvitationID,
		"inviter_id":    inv.InvitationInviterID,
	})
}

// DELETE /invites/:id
func (h *InvitationController) Delete(c *fiber.Ctx) error {
	userID, err := helperAuth.GetUserID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return helper.Validation("invalid invitation id", map[string][]string{"id": {"uuid"}})
	}
	if err := h.Invites.Delete(c.UserContext(), id, userID); err != nil {
		return err
	}
	return helper.JsonDeleted(c, "invitation deleted", fiber.Map{"invitation_id": id})
}
