package dto

import (
	"time"

	"github.com/google/uuid"

	"tutorku_backend/internals/features/users/user/model"
)

// PATCH /users/:id/role
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=STUDENT TUTOR student tutor"`
}

type AssignRoleResponse struct {
	UserID          uuid.UUID `json:"user_id"`
	Role            string    `json:"role"`
	TutorInviteCode *string   `json:"tutor_invite_code,omitempty"`
}

// POST /tutors/onboarding
type TutorOnboardingRequest struct {
	InviteCode *string `json:"invite_code" validate:"omitempty,len=6,alphanum"`
}

type MeResponse struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 *string    `json:"email,omitempty"`
	Name                  *string    `json:"name,omitempty"`
	Image                 *string    `json:"image,omitempty"`
	Role                  string     `json:"role"`
	ParentID              *uuid.UUID `json:"parent_id,omitempty"`
	IsOnboardingCompleted bool       `json:"is_onboarding_completed"`
	CreatedAt             time.Time  `json:"created_at"`

	TutorID          *uuid.UUID `json:"tutor_id,omitempty"`
	TutorInviteCode  *string    `json:"tutor_invite_code,omitempty"`
	TutorInvitedByID *uuid.UUID `json:"tutor_invited_by_id,omitempty"`
	StudentID        *uuid.UUID `json:"student_id,omitempty"`
}

func NewMeResponse(u model.UserModel, role string) MeResponse {
	return MeResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		Image:                 u.Image,
		Role:                  role,
		ParentID:              u.ParentID,
		IsOnboardingCompleted: u.IsOnboardingCompleted,
		CreatedAt:             u.CreatedAt,
	}
}
