package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "topup-service/pkg/aws"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	AppEnv string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresTimeZone string
	AutoMigrate      bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string

	CORSOrigins        []string
	AdminSessionTTL    time.Duration
	AdminCacheTTL      time.Duration
	NotificationLocale string
	SupportContact     string

	PaymentProofBucket  string
	S3PublicBaseURL     string
	UploadURLExpiry     time.Duration
	OrderEventsTopicArn string

	ReplayEnabled  bool
	ReplaySchedule string
	ReplayGrace    time.Duration

	RequestTimeout     time.Duration
	RateLimitPerMinute int

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
	UseSecrets          bool
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:   getEnv("PORT", "8000"),
		AppEnv: getEnv("APP_ENV", "development"),

		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Asia/Dhaka"),
		AutoMigrate:      getBool("AUTO_MIGRATE", true),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:   os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),

		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		AdminSessionTTL:    getDuration("ADMIN_SESSION_TTL", 12*time.Hour),
		AdminCacheTTL:      getDuration("ADMIN_CACHE_TTL", time.Minute),
		NotificationLocale: getEnv("NOTIFICATION_LOCALE", "en"),
		SupportContact:     os.Getenv("SUPPORT_CONTACT"),

		PaymentProofBucket:  os.Getenv("S3_BUCKET_PAYMENT_PROOFS"),
		S3PublicBaseURL:     os.Getenv("S3_PUBLIC_BASE_URL"),
		UploadURLExpiry:     getDuration("UPLOAD_URL_EXPIRY", 15*time.Minute),
		OrderEventsTopicArn: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),

		ReplayEnabled:  getBool("REPLAY_ENABLED", true),
		ReplaySchedule: getEnv("REPLAY_SCHEDULE", "0 */5 * * * *"),
		ReplayGrace:    getDuration("REPLAY_GRACE", 2*time.Minute),

		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 100),

		CloudWatchEnabled:   getBool("CLOUDWATCH_ENABLED", false),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "TopupService"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/topup/services"),
		UseSecrets:          os.Getenv("AWS_USE_SECRETS") == "true",
	}

	if cfg.UseSecrets {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			sm := awspkg.NewSecretsClient(awsCfg)
			if m, err := sm.GetSecretMap(context.Background(), "topup/DB_CREDENTIALS"); err == nil {
				cfg.applySecrets(m)
			}
			if m, err := sm.GetSecretMap(context.Background(), "topup/SUPABASE"); err == nil {
				cfg.applySecrets(m)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overrides fields whose env key appears in m with a non-empty value.
func (c *Config) applySecrets(m map[string]string) {
	targets := map[string]*string{
		"POSTGRES_USER":       &c.PostgresUser,
		"POSTGRES_PASSWORD":   &c.PostgresPassword,
		"POSTGRES_DB":         &c.PostgresDB,
		"POSTGRES_HOST":       &c.PostgresHost,
		"POSTGRES_PORT":       &c.PostgresPort,
		"REDIS_PASSWORD":      &c.RedisPassword,
		"SUPABASE_URL":        &c.SupabaseURL,
		"SUPABASE_ANON_KEY":   &c.SupabaseAnonKey,
		"SUPABASE_JWT_SECRET": &c.SupabaseJWTSecret,
	}
	for key, dst := range targets {
		if v, ok := m[key]; ok && v != "" {
			*dst = v
		}
	}
}

func (c *Config) validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.SupabaseURL == "" && c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_URL or SUPABASE_JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
