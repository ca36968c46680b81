package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"

	"tutorku_backend/internals/configs"
	database "tutorku_backend/internals/databases"
	"tutorku_backend/internals/features/classes/enrollments/scheduler"
	"tutorku_backend/internals/features/finance/payments/gateway"
	helper "tutorku_backend/internals/helpers"
	middlewares "tutorku_backend/internals/middlewares"
	routes "tutorku_backend/internals/route"
	"tutorku_backend/internals/telemetry"
)

func main() {
	cfg := configs.LoadEnv()

	// 📡 tracing (no-op kalau endpoint kosong)
	shutdownTracing, err := telemetry.Setup(context.Background(), cfg)
	if err != nil {
		log.Printf("⚠️ OTel gagal diinisialisasi: %v", err)
	}

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		ErrorHandler:            helper.ErrorHandler,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"}, // sesuaikan dengan CIDR Cloudflare jika perlu
	})

	// ⚙️ middleware dasar + performa
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault})) // gzip
	app.Use(etag.New())                                                  // 304 caching
	middlewares.SetupMiddlewares(app, cfg)

	// 🔌 DB connect + pool + warm-up
	db := database.ConnectDB(cfg)
	database.TunePool(db)
	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("❌ AutoMigrate gagal: %v", err)
		}
	}
	database.WarmUpQueries(db)

	// 💳 payment provider
	provider, err := gateway.New(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("✅ Payment provider: %s", provider.Name())

	// ✅ Routes
	svc := routes.NewServices(db, cfg, provider)
	routes.SetupRoutes(app, db, cfg, svc)

	// ⏱ scheduler setelah DB siap
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := scheduler.StartExpirySweep(sweepCtx, svc.Enrollments, cfg.EnrollmentSweepInterval)

	// 🔒 Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	// Start server non-blocking
	go func() {
		log.Printf("✅ Listening on :%s", cfg.Port)
		if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: HTTP -> scheduler -> tracing -> pool DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	stopSweep()
	<-sweepDone

	if err := shutdownTracing(ctx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
