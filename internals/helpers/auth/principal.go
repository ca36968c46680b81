package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	helper "tutorku_backend/internals/helpers"
)

// Key c.Locals yang diisi middleware AuthJWT.
const (
	LocPrincipal = "principal"
	LocUserID    = "user_id"
	LocUserRole  = "userRole"
	LocRawToken  = "raw_token"
)

// Principal adalah identitas terverifikasi dari identity provider.
// Role hanya petunjuk; role efektif ditentukan dari profil di DB.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Image  string
	Role   string
}

func (p *Principal) HasRole(role string) bool {
	return p != nil && strings.EqualFold(p.Role, role)
}

// GetPrincipal mengambil principal dari Locals, 401 kalau tidak ada.
func GetPrincipal(c *fiber.Ctx) (*Principal, error) {
	p, ok := c.Locals(LocPrincipal).(*Principal)
	if !ok || p == nil || p.UserID == uuid.Nil {
		return nil, helper.Unauthorized("authentication required")
	}
	return p, nil
}

// GetUserID shortcut untuk handler yang hanya butuh id.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	p, err := GetPrincipal(c)
	if err != nil {
		return uuid.Nil, err
	}
	return p.UserID, nil
}
