package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationRejected InvitationStatus = "REJECTED"
)

/*
  invitations = kode referral sekali pakai.
  - PENDING -> ACCEPTED | REJECTED (sekali, terminal)
  - recipient unik: satu user hanya bisa menerima satu undangan
*/

type InvitationModel struct {
	InvitationID        uuid.UUID        `gorm:"column:invitation_id;type:uuid;primaryKey" json:"invitation_id"`
	InvitationCode      string           `gorm:"column:invitation_code;size:16;not null;uniqueIndex:uq_invitations_code" json:"invitation_code"`
	InvitationInviterID uuid.UUID        `gorm:"column:invitation_inviter_id;type:uuid;not null;index:idx_invitations_inviter" json:"invitation_inviter_id"`
	InvitationStatus    InvitationStatus `gorm:"column:invitation_status;type:varchar(16);not null;default:'PENDING'" json:"invitation_status"`

	InvitationRecipientID *uuid.UUID `gorm:"column:invitation_recipient_id;type:uuid;uniqueIndex:uq_invitations_recipient" json:"invitation_recipient_id,omitempty"`
	InvitationAcceptedAt  *time.Time `gorm:"column:invitation_accepted_at" json:"invitation_accepted_at,omitempty"`

	InvitationCreatedAt time.Time `gorm:"column:invitation_created_at;autoCreateTime" json:"invitation_created_at"`
	InvitationUpdatedAt time.Time `gorm:"column:invitation_updated_at;autoUpdateTime" json:"invitation_updated_at"`
}

func (InvitationModel) TableName() string { return "invitations" }

func (m *InvitationModel) BeforeCreate(tx *gorm.DB) error {
	if m.InvitationID == uuid.Nil {
		m.InvitationID = uuid.New()
	}
	if m.InvitationStatus == "" {
		m.InvitationStatus = InvitationPending
	}
	return nil
}
