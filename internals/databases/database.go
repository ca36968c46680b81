package database

import (
	"context"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tutorku_backend/internals/configs"
	classModel "tutorku_backend/internals/features/classes/classes/model"
	enrollmentModel "tutorku_backend/internals/features/classes/enrollments/model"
	paymentModel "tutorku_backend/internals/features/finance/payments/model"
	inviteModel "tutorku_backend/internals/features/invitations/invites/model"
	userModel "tutorku_backend/internals/features/users/user/model"
)

var DB *gorm.DB

func ConnectDB(cfg configs.Config) *gorm.DB {
	log.Println("🔌 Koneksi ke PostgreSQL...")

	// Catatan: kalau pakai PgBouncer, biarkan PreferSimpleProtocol=true
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.PostgresDSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         configs.NewGormLogger(cfg.DBLogLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Fatalf("❌ Gagal konek DB: %v", err)
	}
	DB = db
	log.Println("✅ DB connected.")
	return db
}

func TunePool(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

func WarmUpQueries(db *gorm.DB) {
	// jalankan ringan supaya pool “keisi” & siap
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := Ping(context.Background(), db); err != nil {
			log.Printf("warm-up ping err: %v", err)
		}
	}()
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Models: urutan ini juga urutan AutoMigrate.
func Models() []any {
	return []any{
		&userModel.UserModel{},
		&userModel.TutorModel{},
		&userModel.StudentModel{},
		&inviteModel.InvitationModel{},
		&classModel.ClassModel{},
		&classModel.ChannelModel{},
		&classModel.ClassMemberModel{},
		&enrollmentModel.EnrollmentModel{},
		&paymentModel.PaymentModel{},
		&paymentModel.PaymentGatewayEventModel{},
	}
}

// AutoMigrate membuat tabel + index (termasuk partial unique index
// uq_enrollments_live) untuk postgres maupun sqlite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
