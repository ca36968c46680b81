package service

import (
	"fmt"

	"github.com/google/uuid"

	"tutorku_backend/internals/constants"
	"tutorku_backend/internals/features/users/user/model"
	helper "tutorku_backend/internals/helpers"
)

// Actor adalah pemanggil yang sudah di-resolve dari principal + DB.
// Setiap operasi berbasis role melakukan type switch penuh di sini,
// bukan membandingkan string role.
type Actor interface {
	UserID() uuid.UUID
	Role() string
}

type GuestActor struct{ User model.UserModel }

type StudentActor struct {
	User    model.UserModel
	Student model.StudentModel
}

type TutorActor struct {
	User  model.UserModel
	Tutor model.TutorModel
}

type AdminActor struct{ User model.UserModel }

type SystemActor struct{ User model.UserModel }

func (a *GuestActor) UserID() uuid.UUID   { return a.User.ID }
func (a *StudentActor) UserID() uuid.UUID { return a.User.ID }
func (a *TutorActor) UserID() uuid.UUID   { return a.User.ID }
func (a *AdminActor) UserID() uuid.UUID   { return a.User.ID }
func (a *SystemActor) UserID() uuid.UUID  { return a.User.ID }

func (a *GuestActor) Role() string   { return constants.RoleGuest }
func (a *StudentActor) Role() string { return constants.RoleStudent }
func (a *TutorActor) Role() string   { return constants.RoleTutor }
func (a *AdminActor) Role() string   { return constants.RoleAdmin }
func (a *SystemActor) Role() string  { return constants.RoleSystem }

/* =========================================================
   Guards
========================================================= */

func RequireTutor(a Actor, feature string) (*TutorActor, error) {
	switch v := a.(type) {
	case *TutorActor:
		return v, nil
	case *GuestActor, *StudentActor, *AdminActor, *SystemActor:
		return nil, helper.Forbidden(constants.RoleErrorTutor(feature))
	default:
		return nil, helper.Internal(fmt.Errorf("unknown actor %T", a))
	}
}

func RequireStudent(a Actor, feature string) (*StudentActor, error) {
	switch v := a.(type) {
	case *StudentActor:
		return v, nil
	case *GuestActor, *TutorActor, *AdminActor, *SystemActor:
		return nil, helper.Forbidden(constants.RoleErrorStudent(feature))
	default:
		return nil, helper.Internal(fmt.Errorf("unknown actor %T", a))
	}
}

// IsOperator: admin/system boleh melihat semua resource.
func IsOperator(a Actor) bool {
	switch a.(type) {
	case *AdminActor, *SystemActor:
		return true
	default:
		return false
	}
}
