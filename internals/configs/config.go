package configs

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// Config dibaca sekali saat bootstrap lalu dipass ke layer lain.
type Config struct {
	Port         string `env:"PORT" envDefault:"3000"`
	AppURL       string `env:"APP_URL" envDefault:"http://localhost:5173"`
	AllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173,http://127.0.0.1:5173"`

	// Database
	DBUser        string `env:"DB_USER"`
	DBPassword    string `env:"DB_PASSWORD"`
	DBHost        string `env:"DB_HOST" envDefault:"localhost"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBName        string `env:"DB_NAME"`
	DBSSLMode     string `env:"DB_SSLMODE" envDefault:"require"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	DBLogLevel    string `env:"DB_LOG_LEVEL" envDefault:"warn"`

	// Principal (token dari identity provider eksternal)
	JWTSecret           string `env:"JWT_SECRET"`
	AllowCookieFallback bool   `env:"JWT_ALLOW_COOKIE" envDefault:"true"`

	// Payment
	PaymentProvider     string `env:"PAYMENT_PROVIDER" envDefault:"midtrans"`
	PaymentCurrency     string `env:"PAYMENT_CURRENCY" envDefault:"IDR"`
	MidtransServerKey   string `env:"MIDTRANS_SERVER_KEY"`
	MidtransUseProd     bool   `env:"MIDTRANS_USE_PROD" envDefault:"false"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	// Enrollment
	EnrollmentTTLMonths     int           `env:"ENROLLMENT_TTL_MONTHS" envDefault:"6"`
	EnrollmentSweepInterval time.Duration `env:"ENROLLMENT_SWEEP_INTERVAL" envDefault:"15m"`

	// Tracing (opt-in)
	OtelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OtelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"tutorku-backend"`
}

// =======================
// ENV LOADER
// =======================
func LoadEnv() Config {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ Tidak menemukan .env file, menggunakan ENV dari sistem")
		} else {
			log.Println("✅ .env file berhasil dimuat!")
		}
	} else {
		log.Println("🚀 Running in Railway, menggunakan ENV dari sistem")
	}

	cfg, err := Parse()
	if err != nil {
		log.Fatalf("❌ Config tidak valid: %v", err)
	}

	if cfg.JWTSecret == "" {
		log.Println("❌ JWT_SECRET belum diset!")
	} else {
		log.Println("✅ JWT_SECRET berhasil dimuat.")
	}

	switch cfg.PaymentProvider {
	case "stripe":
		if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
			log.Println("❌ STRIPE_SECRET_KEY / STRIPE_WEBHOOK_SECRET belum diset!")
		}
	default:
		if cfg.MidtransServerKey == "" {
			log.Println("❌ MIDTRANS_SERVER_KEY belum diset!")
		}
	}
	return cfg
}

// Parse membaca env ke Config tanpa menyentuh file .env.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.PaymentProvider = strings.ToLower(strings.TrimSpace(cfg.PaymentProvider))
	cfg.PaymentCurrency = strings.ToUpper(strings.TrimSpace(cfg.PaymentCurrency))
	cfg.AppURL = strings.TrimRight(strings.TrimSpace(cfg.AppURL), "/")
	if cfg.EnrollmentTTLMonths <= 0 {
		return Config{}, fmt.Errorf("ENROLLMENT_TTL_MONTHS must be positive, got %d", cfg.EnrollmentTTLMonths)
	}
	if cfg.EnrollmentSweepInterval <= 0 {
		return Config{}, fmt.Errorf("ENROLLMENT_SWEEP_INTERVAL must be positive")
	}
	return cfg, nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=tutorku&options=-c statement_timeout=3000",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger(level string) gormLogger.Interface {
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      parseLogLevel(level),
	}
}

func parseLogLevel(s string) gormLogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return gormLogger.Silent
	case "error":
		return gormLogger.Error
	case "info":
		return gormLogger.Info
	default:
		return gormLogger.Warn
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *l
	cp.LogLevel = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		log.Printf("[INFO] "+msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		log.Printf("[WARN] "+msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		log.Printf("[ERROR] "+msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	switch {
	case err != nil && l.LogLevel >= gormLogger.Error:
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormLogger.Warn:
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	case l.LogLevel >= gormLogger.Info:
		log.Printf("[QUERY] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
