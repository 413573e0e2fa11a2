// Package config loads the process environment into a typed Config via
// viper, the way the teacher's config package does, generalized from a
// single LETSHARE_-prefixed YAML config to the flat environment surface
// this service's deploy environment actually sets (spec §6).
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env  string
	Port string

	JWTSecret    string
	CookieSecret string

	Redis Redis

	CORSOrigins []string

	WebhookToken string

	VAPID VAPID

	Telegram Telegram

	LogLevel      string
	LogMaxEntries int

	InboxMax int
	InboxTTL time.Duration

	PushMaxDevices int
}

type Redis struct {
	Mode           string // "standalone" or "sentinel"
	Host           string
	Port           string
	Password       string
	SentinelHost   string
	SentinelPort   string
	SentinelMaster string
}

type VAPID struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

type Telegram struct {
	BotToken string
	ChatID   string
}

// Load reads .env (if present, local-dev convenience per the teacher's
// pattern) then binds the process environment through viper.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	// The CORS_ORIGIN default is only safe for local development; it must
	// not mask a missing value once NODE_ENV says production (spec §7).
	if v.GetString("NODE_ENV") == "production" {
		v.SetDefault("CORS_ORIGIN", []string{})
	}

	cfg := &Config{
		Env:          v.GetString("NODE_ENV"),
		Port:         v.GetString("PORT"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		CookieSecret: v.GetString("COOKIE_SECRET"),
		Redis: Redis{
			Mode:           v.GetString("REDIS_MODE"),
			Host:           v.GetString("REDIS_HOST"),
			Port:           v.GetString("REDIS_PORT"),
			Password:       v.GetString("REDIS_PASSWORD"),
			SentinelHost:   v.GetString("REDIS_SENTINEL_HOST"),
			SentinelPort:   v.GetString("REDIS_SENTINEL_PORT"),
			SentinelMaster: v.GetString("REDIS_SENTINEL_NAME"),
		},
		CORSOrigins: v.GetStringSlice("CORS_ORIGIN"),
		WebhookToken: v.GetString("WEBHOOK_TOKEN"),
		VAPID: VAPID{
			PublicKey:  v.GetString("VAPID_PUBLIC_KEY"),
			PrivateKey: v.GetString("VAPID_PRIVATE_KEY"),
			Subject:    v.GetString("VAPID_SUBJECT"),
		},
		Telegram: Telegram{
			BotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
			ChatID:   v.GetString("TELEGRAM_CHAT_ID"),
		},
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogMaxEntries:  v.GetInt("LOG_MAX_ENTRIES"),
		InboxMax:       v.GetInt("INBOX_MAX"),
		InboxTTL:       v.GetDuration("INBOX_TTL"),
		PushMaxDevices: v.GetInt("PUSH_MAX_DEVICES"),
	}

	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("config: JWT_SECRET must be at least 32 bytes")
	}

	if cfg.Production() && len(cfg.CORSOrigins) == 0 {
		return nil, fmt.Errorf("config: CORS_ORIGIN must be set in production")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("NODE_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REDIS_MODE", "standalone")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("CORS_ORIGIN", []string{"http://localhost:5173"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_ENTRIES", 200)
	v.SetDefault("INBOX_MAX", 50)
	v.SetDefault("INBOX_TTL", "24h")
	v.SetDefault("PUSH_MAX_DEVICES", 5)
}

func (c *Config) Production() bool {
	return c.Env == "production"
}
