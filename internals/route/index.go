package routes

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tutorku_backend/internals/configs"
	classRoute "tutorku_backend/internals/features/classes/classes/route"
	classService "tutorku_backend/internals/features/classes/classes/service"
	enrollmentRoute "tutorku_backend/internals/features/classes/enrollments/route"
	enrollmentService "tutorku_backend/internals/features/classes/enrollments/service"
	"tutorku_backend/internals/features/finance/payments/gateway"
	paymentRoute "tutorku_backend/internals/features/finance/payments/route"
	paymentService "tutorku_backend/internals/features/finance/payments/service"
	inviteRoute "tutorku_backend/internals/features/invitations/invites/route"
	inviteService "tutorku_backend/internals/features/invitations/invites/service"
	userRoute "tutorku_backend/internals/features/users/user/route"
	userService "tutorku_backend/internals/features/users/user/service"
	helperAuth "tutorku_backend/internals/helpers/auth"
	"tutorku_backend/internals/middlewares"
	authMiddleware "tutorku_backend/internals/middlewares/auth"
)

var startTime time.Time

// Services dibangun sekali; main butuh Enrollments untuk scheduler sweep.
type Services struct {
	Users       *userService.UserService
	Invitations *inviteService.InvitationService
	Classes     *classService.ClassService
	Enrollments *enrollmentService.EnrollmentService
	Payments    *paymentService.PaymentService
}

func NewServices(db *gorm.DB, cfg configs.Config, provider gateway.Provider) *Services {
	return &Services{
		Users:       userService.NewUserService(db),
		Invitations: inviteService.NewInvitationService(db, cfg.AppURL),
		Classes:     classService.NewClassService(db, cfg.PaymentCurrency),
		Enrollments: enrollmentService.NewEnrollmentService(db, provider, cfg.AppURL, cfg.EnrollmentTTLMonths),
		Payments:    paymentService.NewPaymentService(db, provider),
	}
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg configs.Config, svc *Services) {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, db)

	// principal valid -> user lokal di-upsert sebelum handler jalan
	authMw := authMiddleware.AuthJWT(authMiddleware.AuthJWTOpts{
		Secret:              cfg.JWTSecret,
		AllowCookieFallback: cfg.AllowCookieFallback,
		OnPrincipal: func(ctx context.Context, p *helperAuth.Principal) error {
			_, err := svc.Users.EnsureUser(ctx, p)
			return err
		},
	})

	api := app.Group("/api/v1")

	// kode 6 karakter: batasi percobaan per IP
	api.Use("/classes/join", middlewares.CodeRateLimiter())
	api.Use("/invites", middlewares.CodeRateLimiter())

	log.Println("[INFO] Mounting User routes...")
	userRoute.UserRoutes(api, svc.Users, authMw)

	log.Println("[INFO] Mounting Invitation routes...")
	inviteRoute.InvitationRoutes(api, svc.Invitations, authMw)

	log.Println("[INFO] Mounting Class routes...")
	classRoute.ClassRoutes(api, svc.Classes, svc.Users, authMw)

	log.Println("[INFO] Mounting Enrollment routes...")
	enrollmentRoute.EnrollmentRoutes(api, svc.Enrollments, svc.Users, authMw)

	log.Println("[INFO] Mounting Payment routes...")
	paymentRoute.PaymentRoutes(api, svc.Payments, svc.Users, authMw)
}
