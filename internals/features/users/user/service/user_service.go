package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tutorku_backend/internals/constants"
	"tutorku_backend/internals/features/users/user/dto"
	"tutorku_backend/internals/features/users/user/model"
	helper "tutorku_backend/internals/helpers"
	helperAuth "tutorku_backend/internals/helpers/auth"
)

// jumlah percobaan generate kode tutor sebelum menyerah
const tutorCodeAttempts = 3

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

/* =========================================================
   ENSURE USER (first-sight upsert dari principal)
========================================================= */

func (s *UserService) EnsureUser(ctx context.Context, p *helperAuth.Principal) (*model.UserModel, error) {
	if p == nil || p.UserID == uuid.Nil {
		return nil, helper.Unauthorized("authentication required")
	}
	db := s.DB.WithContext(ctx)

	var u model.UserModel
	err := db.First(&u, "id = ?", p.UserID).Error
	if err == nil {
		return &u, nil
	}
	if !helper.IsNotFound(err) {
		return nil, helper.Internal(err)
	}

	u = model.UserModel{
		ID:    p.UserID,
		Email: optional(p.Email),
		Name:  optional(p.Name),
		Image: optional(p.Image),
	}
	if constants.IsOperator(p.Role) {
		role := p.Role
		u.Role = &role
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&u)
	if res.Error != nil {
		return nil, helper.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		// dibuat request lain barusan, atau email bentrok dengan akun lain
		if err := db.First(&u, "id = ?", p.UserID).Error; err != nil {
			if helper.IsNotFound(err) {
				return nil, helper.Conflict("email already registered to another account")
			}
			return nil, helper.Internal(err)
		}
		return &u, nil
	}
	log.Printf("[INFO] user baru tercatat id=%s", u.ID)
	return &u, nil
}

/* =========================================================
   ACTOR RESOLUTION
========================================================= */

func (s *UserService) ResolveActor(ctx context.Context, p *helperAuth.Principal) (Actor, error) {
	u, err := s.EnsureUser(ctx, p)
	if err != nil {
		return nil, err
	}
	// role operator datang dari token, bukan dari profil
	switch {
	case p.HasRole(constants.RoleAdmin):
		return &AdminActor{User: *u}, nil
	case p.HasRole(constants.RoleSystem):
		return &SystemActor{User: *u}, nil
	}
	return s.ActorFor(ctx, u)
}

// ActorFor membangun Actor dari row user + profil yang ada di DB.
func (s *UserService) ActorFor(ctx context.Context, u *model.UserModel) (Actor, error) {
	switch u.RoleValue() {
	case constants.RoleAdmin:
		return &AdminActor{User: *u}, nil
	case constants.RoleSystem:
		return &SystemActor{User: *u}, nil
	}

	db := s.DB.WithContext(ctx)

	var tutor model.TutorModel
	err := db.First(&tutor, "tutor_user_id = ?", u.ID).Error
	if err == nil {
		return &TutorActor{User: *u, Tutor: tutor}, nil
	}
	if !helper.IsNotFound(err) {
		return nil, helper.Internal(err)
	}

	var student model.StudentModel
	err = db.First(&student, "student_user_id = ?", u.ID).Error
	if err == nil {
		return &StudentActor{User: *u, Student: student}, nil
	}
	if !helper.IsNotFound(err) {
		return nil, helper.Internal(err)
	}

	return &GuestActor{User: *u}, nil
}

/* =========================================================
   ROLE GATE (write-once)
========================================================= */

func (s *UserService) AssignRole(ctx context.Context, userID uuid.UUID, role string) (*dto.AssignRoleResponse, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !constants.IsAssignable(role) {
		return nil, helper.Validation("role must be STUDENT or TUTOR", map[string][]string{"role": {"oneof"}})
	}

	out := &dto.AssignRoleResponse{UserID: userID, Role: role}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.UserModel
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			if helper.IsNotFound(err) {
				return helper.NotFound("user not found")
			}
			return helper.Internal(err)
		}
		if r := u.RoleValue(); r != "" && r != constants.RoleGuest {
			return helper.Conflict("role already assigned")
		}

		var tutors, students int64
		if err := tx.Model(&model.TutorModel{}).Where("tutor_user_id = ?", userID).Count(&tutors).Error; err != nil {
			return helper.Internal(err)
		}
		if err := tx.Model(&model.StudentModel{}).Where("student_user_id = ?", userID).Count(&students).Error; err != nil {
			return helper.Internal(err)
		}
		if tutors+students > 0 {
			return helper.Conflict("role already assigned")
		}

		switch role {
		case constants.RoleTutor:
			tutor, err := createTutorProfile(tx, userID)
			if err != nil {
				return err
			}
			out.TutorInviteCode = &tutor.TutorInviteCode
		case constants.RoleStudent:
			if err := tx.Create(&model.StudentModel{StudentUserID: userID}).Error; err != nil {
				if helper.IsUniqueViolation(err) {
					return helper.Conflict("role already assigned")
				}
				return helper.Internal(err)
			}
		}

		// conditional: request lain yang lebih dulu commit membuat ini 0 rows
		res := tx.Model(&model.UserModel{}).
			Where("id = ? AND (role IS NULL OR role = ?)", userID, constants.RoleGuest).
			Update("role", role)
		if res.Error != nil {
			return helper.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return helper.Conflict("role already assigned")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] role %s diberikan ke user=%s", role, userID)
	return out, nil
}

// createTutorProfile: bentrok kode di-retry lewat savepoint supaya
// transaksi postgres tidak ikut batal.
func createTutorProfile(tx *gorm.DB, userID uuid.UUID) (*model.TutorModel, error) {
	for attempt := 1; attempt <= tutorCodeAttempts; attempt++ {
		sp := fmt.Sprintf("sp_tutor_%d", attempt)
		if err := tx.SavePoint(sp).Error; err != nil {
			return nil, helper.Internal(err)
		}
		tutor := model.TutorModel{TutorUserID: userID, TutorInviteCode: helper.RandomCode(helper.InviteCodeLen)}
		err := tx.Create(&tutor).Error
		if err == nil {
			return &tutor, nil
		}
		if !helper.IsUniqueViolation(err) {
			return nil, helper.Internal(err)
		}
		if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
			return nil, helper.Internal(rbErr)
		}
		var exists int64
		if err := tx.Model(&model.TutorModel{}).Where("tutor_user_id = ?", userID).Count(&exists).Error; err != nil {
			return nil, helper.Internal(err)
		}
		if exists > 0 {
			return nil, helper.Conflict("role already assigned")
		}
	}
	return nil, helper.Internal(fmt.Errorf("tutor invite code: %d collisions", tutorCodeAttempts))
}

/* =========================================================
   TUTOR ONBOARDING (link recruiter)
========================================================= */

func (s *UserService) LinkRecruiter(ctx context.Context, tutor *TutorActor, inviteCode *string) (*model.TutorModel, error) {
	var out model.TutorModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if inviteCode != nil && strings.TrimSpace(*inviteCode) != "" {
			code := helper.NormalizeCode(*inviteCode)

			var recruiter model.TutorModel
			if err := tx.First(&recruiter, "tutor_invite_code = ?", code).Error; err != nil {
				if helper.IsNotFound(err) {
					return helper.NotFound("tutor invite code not found")
				}
				return helper.Internal(err)
			}
			if recruiter.TutorID == tutor.Tutor.TutorID {
				return helper.InvalidOperation("cannot use your own invite code")
			}

			res := tx.Model(&model.TutorModel{}).
				Where("tutor_id = ? AND tutor_invited_by_id IS NULL", tutor.Tutor.TutorID).
				Update("tutor_invited_by_id", recruiter.TutorID)
			if res.Error != nil {
				return helper.Internal(res.Error)
			}
			if res.RowsAffected == 0 {
				return helper.Conflict("recruiter already linked")
			}
		}

		if err := tx.Model(&model.UserModel{}).
			Where("id = ?", tutor.User.ID).
			Update("is_onboarding_completed", true).Error; err != nil {
			return helper.Internal(err)
		}
		if err := tx.First(&out, "tutor_id = ?", tutor.Tutor.TutorID).Error; err != nil {
			return helper.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

/* =========================================================
   ME
========================================================= */

func (s *UserService) Me(ctx context.Context, actor Actor) (*dto.MeResponse, error) {
	var u model.UserModel
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", actor.UserID()).Error; err != nil {
		if helper.IsNotFound(err) {
			return nil, helper.NotFound("user not found")
		}
		return nil, helper.Internal(err)
	}

	resp := dto.NewMeResponse(u, actor.Role())
	switch a := actor.(type) {
	case *TutorActor:
		resp.TutorID = &a.Tutor.TutorID
		resp.TutorInviteCode = &a.Tutor.TutorInviteCode
		resp.TutorInvitedByID = a.Tutor.TutorInvitedByID
	case *StudentActor:
		resp.StudentID = &a.Student.StudentID
	case *GuestActor, *AdminActor, *SystemActor:
	}
	return &resp, nil
}
