// Package config reads the bot configuration from the environment (and an
// optional .env file) into a validated Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken string  `validate:"required,contains=:"`
	AdminIDs []int64 `validate:"dive,gt=0"`

	DBDriver string `validate:"oneof=sqlite mysql"`
	DBDSN    string `validate:"required"`

	SessionStore string        `validate:"oneof=memory redis"`
	SessionTTL   time.Duration `validate:"gt=0"`

	RedisAddr     string `validate:"required_if=SessionStore redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	NotifyMode        string `validate:"oneof=direct queue"`
	NotifyConcurrency int    `validate:"gt=0"`

	WebhookURL  string `validate:"omitempty,url"`
	WebhookAddr string

	S3Endpoint  string
	S3AccessKey string `validate:"required_with=S3Endpoint"`
	S3SecretKey string `validate:"required_with=S3Endpoint"`
	S3Bucket    string `validate:"required_with=S3Endpoint"`
	S3UseSSL    bool
	S3Region    string

	PhoneRegion    string `validate:"len=2"`
	TrustContact   string
	SupportContact string
	WorkHours      string

	LogLevel  string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `validate:"oneof=json text"`
}

const (
	defaultDBDriver          = "sqlite"
	defaultDBDSN             = "bot.db"
	defaultSessionStore      = "memory"
	defaultSessionTTL        = 30 * time.Minute
	defaultNotifyMode        = "direct"
	defaultNotifyConcurrency = 4
	defaultWebhookAddr       = ":8080"
	defaultPhoneRegion       = "KZ"
	defaultWorkHours         = "10:00–22:00"
	defaultLogLevel          = "info"
	defaultLogFormat         = "text"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

// Load reads .env (when present) and the process environment. Unparseable
// numeric or duration values fall back to their defaults; the resulting
// Config is validated before it is returned.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:          strings.TrimSpace(readEnv("BOT_TOKEN", "")),
		AdminIDs:          parseIDs("ADMIN_IDS"),
		DBDriver:          readEnv("DB_DRIVER", defaultDBDriver),
		DBDSN:             readEnv("DB_DSN", defaultDBDSN),
		SessionStore:      readEnv("SESSION_STORE", defaultSessionStore),
		SessionTTL:        parseDuration("SESSION_TTL", defaultSessionTTL),
		RedisAddr:         readEnv("REDIS_ADDR", ""),
		RedisPassword:     readEnv("REDIS_PASSWORD", ""),
		RedisDB:           parseInt("REDIS_DB", 0),
		NotifyMode:        readEnv("NOTIFY_MODE", defaultNotifyMode),
		NotifyConcurrency: parseInt("NOTIFY_CONCURRENCY", defaultNotifyConcurrency),
		WebhookURL:        readEnv("WEBHOOK_URL", ""),
		WebhookAddr:       readEnv("WEBHOOK_ADDR", defaultWebhookAddr),
		S3Endpoint:        readEnv("S3_ENDPOINT", ""),
		S3AccessKey:       readEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       readEnv("S3_SECRET_KEY", ""),
		S3Bucket:          readEnv("S3_BUCKET", ""),
		S3UseSSL:          parseBool("S3_USE_SSL", false),
		S3Region:          readEnv("S3_REGION", ""),
		PhoneRegion:       strings.ToUpper(readEnv("PHONE_REGION", defaultPhoneRegion)),
		TrustContact:      readEnv("TRUST_CONTACT", ""),
		SupportContact:    readEnv("SUPPORT_CONTACT", ""),
		WorkHours:         readEnv("WORK_HOURS", defaultWorkHours),
		LogLevel:          strings.ToLower(readEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:         strings.ToLower(readEnv("LOG_FORMAT", defaultLogFormat)),
	}
	if cfg.NotifyMode == "queue" && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("%w: NOTIFY_MODE=queue requires REDIS_ADDR", ErrInvalid)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ArchiveEnabled reports whether proof uploads should be copied to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Endpoint != ""
}

// IsAdmin reports whether userID is on the ADMIN_IDS allow-list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	fields := ValidationFields(verrs)
	parts := make([]string, 0, len(fields))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s(%s)", fe.Field(), fields[fe.Field()]))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(parts, ", "))
}

// ValidationFields flattens validator errors into field -> failed tag.
func ValidationFields(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseIDs(key string) []int64 {
	var out []int64
	for _, raw := range strings.Split(readEnv(key, ""), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		// Non-numeric entries are skipped, the allow-list only holds user ids.
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
