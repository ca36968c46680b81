package constants

import "fmt"

// Role global user. STUDENT/TUTOR diset sekali lewat role gate,
// ADMIN/SYSTEM hanya datang dari token principal.
const (
	RoleGuest   = "GUEST"
	RoleStudent = "STUDENT"
	RoleTutor   = "TUTOR"
	RoleAdmin   = "ADMIN"
	RoleSystem  = "SYSTEM"
)

// Template pesan error role
const (
	ErrOnlyTutorsCanAccess   = "Hanya tutor yang boleh mengakses fitur %s."
	ErrOnlyStudentsCanAccess = "Hanya student yang boleh mengakses fitur %s."
	ErrOnlyAdminsCanAccess   = "Hanya admin yang boleh mengakses fitur %s."
)

func RoleErrorTutor(feature string) string {
	return fmt.Sprintf(ErrOnlyTutorsCanAccess, feature)
}

func RoleErrorStudent(feature string) string {
	return fmt.Sprintf(ErrOnlyStudentsCanAccess, feature)
}

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

// ==========================
// ✅ Grouped Role Slices
// ==========================
var (
	AssignableRoles = []string{
		RoleStudent,
		RoleTutor,
	}

	OperatorRoles = []string{
		RoleAdmin,
		RoleSystem,
	}
)

func IsAssignable(role string) bool {
	for _, r := range AssignableRoles {
		if r == role {
			return true
		}
	}
	return false
}

func IsOperator(role string) bool {
	for _, r := range OperatorRoles {
		if r == role {
			return true
		}
	}
	return false
}
