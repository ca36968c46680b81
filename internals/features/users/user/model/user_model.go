package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserModel merepresentasikan tabel users. ID sama dengan id principal
// dari identity provider, bukan dibuat sendiri.
type UserModel struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email *string   `gorm:"size:255;uniqueIndex:uq_users_email" json:"email,omitempty"`
	Name  *string   `gorm:"size:120" json:"name,omitempty"`
	Image *string   `gorm:"size:512" json:"image,omitempty"`

	// nil sampai role gate dipanggil; STUDENT/TUTOR write-once
	Role *string `gorm:"type:varchar(20);index" json:"role,omitempty"`

	// inviter di pohon referral; diset sekali lewat accept invitation
	ParentID *uuid.UUID `gorm:"type:uuid;index:idx_users_parent" json:"parent_id,omitempty"`

	IsOnboardingCompleted bool `gorm:"not null;default:false" json:"is_onboarding_completed"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName memastikan nama tabel sesuai dengan skema database
func (UserModel) TableName() string {
	return "users"
}

func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// BeforeSave: email selalu disimpan lowercase
func (u *UserModel) BeforeSave(tx *gorm.DB) error {
	if u.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*u.Email))
		if e == "" {
			u.Email = nil
		} else {
			u.Email = &e
		}
	}
	return nil
}

func (u *UserModel) RoleValue() string {
	if u.Role == nil {
		return ""
	}
	return *u.Role
}

func (u *UserModel) DisplayName() string {
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return *u.Name
	}
	if u.Email != nil {
		return *u.Email
	}
	return ""
}
