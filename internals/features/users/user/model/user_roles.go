package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* =========================================================
   Profil role. Satu user maksimal punya satu di antara dua.
========================================================= */

type TutorModel struct {
	TutorID     uuid.UUID `gorm:"column:tutor_id;type:uuid;primaryKey" json:"tutor_id"`
	TutorUserID uuid.UUID `gorm:"column:tutor_user_id;type:uuid;not null;uniqueIndex:uq_tutors_user" json:"tutor_user_id"`

	// kode rekrutmen tutor, [A-Z0-9]{6}
	TutorInviteCode string `gorm:"column:tutor_invite_code;size:16;not null;uniqueIndex:uq_tutors_invite_code" json:"tutor_invite_code"`

	// tutor lain yang merekrut (opsional, diset saat onboarding)
	TutorInvitedByID *uuid.UUID `gorm:"column:tutor_invited_by_id;type:uuid;index" json:"tutor_invited_by_id,omitempty"`

	TutorCreatedAt time.Time `gorm:"column:tutor_created_at;autoCreateTime" json:"tutor_created_at"`
	TutorUpdatedAt time.Time `gorm:"column:tutor_updated_at;autoUpdateTime" json:"tutor_updated_at"`
}

func (TutorModel) TableName() string { return "tutors" }

func (m *TutorModel) BeforeCreate(tx *gorm.DB) error {
	if m.TutorID == uuid.Nil {
		m.TutorID = uuid.New()
	}
	return nil
}

type StudentModel struct {
	StudentID     uuid.UUID `gorm:"column:student_id;type:uuid;primaryKey" json:"student_id"`
	StudentUserID uuid.UUID `gorm:"column:student_user_id;type:uuid;not null;uniqueIndex:uq_students_user" json:"student_user_id"`

	StudentCreatedAt time.Time `gorm:"column:student_created_at;autoCreateTime" json:"student_created_at"`
	StudentUpdatedAt time.Time `gorm:"column:student_updated_at;autoUpdateTime" json:"student_updated_at"`
}

func (StudentModel) TableName() string { return "students" }

func (m *StudentModel) BeforeCreate(tx *gorm.DB) error {
	if m.StudentID == uuid.Nil {
		m.StudentID = uuid.New()
	}
	return nil
}
