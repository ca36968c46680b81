package dto

import (
	"time"

	"github.com/google/uuid"

	"tutorku_backend/internals/features/invitations/invites/model"
)

type InviteCodeResponse struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	Code         string    `json:"code"`
}

type InviterInfo struct {
	Name  *string `json:"name"`
	Image *string `json:"image"`
}

// GET /invites/:code
type InvitationDetail struct {
	ID      uuid.UUID              `json:"id"`
	Code    string                 `json:"code"`
	Status  model.InvitationStatus `json:"status"`
	Inviter InviterInfo            `json:"inviter"`
}

// GET /invites
type InvitationListItem struct {
	ID             uuid.UUID              `json:"id"`
	Code           string                 `json:"code"`
	Status         model.InvitationStatus `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
	AcceptedAt     *time.Time             `json:"accepted_at,omitempty"`
	RecipientEmail *string                `json:"recipient_email,omitempty"`
}

// GET /invites/children
type ChildItem struct {
	ID        uuid.UUID `json:"id"`
	Name      *string   `json:"name"`
	Image     *string   `json:"image"`
	Role      *string   `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// GET /invites/descendants, GET /admin/referrals?email=
type ReferralNode struct {
	ID        uuid.UUID      `json:"id"`
	Name      *string        `json:"name"`
	Email     *string        `json:"email,omitempty"`
	Role      *string        `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	Children  []ReferralNode `json:"children"`
}

type ReferralUser struct {
	ID    uuid.UUID `json:"id"`
	Name  *string   `json:"name"`
	Email *string   `json:"email"`
}

type ReferralTree struct {
	User        ReferralUser   `json:"user"`
	Descendants []ReferralNode `json:"descendants"`
}
