package configs

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

var (
	JWTSecret           string
	StripeSecretKey     string
	StripeWebhookSecret string
	PayPalClientID      string
	PayPalClientSecret  string
	PayPalWebhookSecret string
	MidtransServerKey   string
	VisionAPIKey        string
	SendgridAPIKey      string
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ .env file tidak ditemukan, pakai ENV dari sistem")
		} else {
			log.Println("✅ .env file berhasil dimuat")
		}
	} else {
		log.Println("🚀 Running in Railway, pakai ENV dari sistem")
	}

	JWTSecret = GetEnv("JWT_SECRET")
	StripeSecretKey = GetEnv("STRIPE_SECRET_KEY")
	StripeWebhookSecret = GetEnv("STRIPE_WEBHOOK_SECRET")
	PayPalClientID = GetEnv("PAYPAL_CLIENT_ID")
	PayPalClientSecret = GetEnv("PAYPAL_CLIENT_SECRET")
	PayPalWebhookSecret = GetEnv("PAYPAL_WEBHOOK_SECRET")
	MidtransServerKey = GetEnv("MIDTRANS_SERVER_KEY")
	VisionAPIKey = GetEnv("VISION_API_KEY")
	SendgridAPIKey = GetEnv("SENDGRID_API_KEY")

	mustWarn("JWT_SECRET", JWTSecret)
	mustWarn("STRIPE_WEBHOOK_SECRET", StripeWebhookSecret)
	mustWarn("PAYPAL_WEBHOOK_SECRET", PayPalWebhookSecret)
	if VisionAPIKey == "" {
		log.Println("⚠️ VISION_API_KEY belum diset — analisis foto AI akan di-skip")
	}
}

func mustWarn(key, val string) {
	if val == "" {
		log.Printf("❌ %s belum diset!", key)
	} else {
		log.Printf("✅ %s berhasil dimuat.", key)
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      gormLogger.Warn,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	l.LogLevel = level
	return l
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	log.Printf("[INFO] "+msg, data...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	log.Printf("[WARN] "+msg, data...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	log.Printf("[ERROR] "+msg, data...)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	if err != nil {
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	} else if elapsed > l.SlowThreshold {
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
