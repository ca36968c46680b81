// Package testutil berisi fixture yang dipakai test lintas package.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	database "tutorku_backend/internals/databases"
	userModel "tutorku_backend/internals/features/users/user/model"
)

// OpenDB membuka SQLite file sementara yang sudah di-migrate.
// File (bukan :memory:) supaya semua koneksi melihat data yang sama.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// sqlite hanya satu writer; serialisasi lewat pool
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

// CreateUser membuat user tanpa role.
func CreateUser(t *testing.T, db *gorm.DB, email string) userModel.UserModel {
	t.Helper()
	u := userModel.UserModel{ID: uuid.New(), Email: strPtr(email), Name: strPtr(email)}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

// CreateTutor membuat user + profil tutor + role TUTOR.
func CreateTutor(t *testing.T, db *gorm.DB, email, code string) (userModel.UserModel, userModel.TutorModel) {
	t.Helper()
	u := CreateUser(t, db, email)
	tutor := userModel.TutorModel{TutorUserID: u.ID, TutorInviteCode: code}
	if err := db.Create(&tutor).Error; err != nil {
		t.Fatalf("create tutor: %v", err)
	}
	setRole(t, db, &u, "TUTOR")
	return u, tutor
}

// CreateStudent membuat user + profil student + role STUDENT.
func CreateStudent(t *testing.T, db *gorm.DB, email string) (userModel.UserModel, userModel.StudentModel) {
	t.Helper()
	u := CreateUser(t, db, email)
	st := userModel.StudentModel{StudentUserID: u.ID}
	if err := db.Create(&st).Error; err != nil {
		t.Fatalf("create student: %v", err)
	}
	setRole(t, db, &u, "STUDENT")
	return u, st
}

func setRole(t *testing.T, db *gorm.DB, u *userModel.UserModel, role string) {
	t.Helper()
	if err := db.Model(&userModel.UserModel{}).Where("id = ?", u.ID).Update("role", role).Error; err != nil {
		t.Fatalf("set role: %v", err)
	}
	u.Role = strPtr(role)
}
