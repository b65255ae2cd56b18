// Package config reads process settings from the environment and the event
// description from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings are the process-level knobs, all read from the environment.
type Settings struct {
	Addr          string
	DBPath        string
	DatabaseURL   string
	EventConfig   string
	AMQPURL       string
	AMQPExchange  string
	TGBotToken    string
	TGChatID      int64
	PublicBaseURL string
	SessionIdle   time.Duration
	StrictFields  bool
	LogLevel      string
	LogFormat     string
	StaticDir     string
}

// LoadDotEnv loads path into the environment when it exists. Variables that
// are already set win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() (Settings, error) {
	s := Settings{
		Addr:          getEnv("ADDR", ":8080"),
		DBPath:        getEnv("DB_DSN", "congress.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		EventConfig:   os.Getenv("EVENT_CONFIG"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "registrations"),
		TGBotToken:    os.Getenv("TG_BOT_TOKEN"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		StaticDir:     getEnv("STATIC_DIR", "static"),
	}

	idle, err := time.ParseDuration(getEnv("SESSION_IDLE", "30m"))
	if err != nil || idle <= 0 {
		return s, fmt.Errorf("SESSION_IDLE: invalid duration %q", os.Getenv("SESSION_IDLE"))
	}
	s.SessionIdle = idle

	if v := os.Getenv("TG_ORGANISER_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return s, fmt.Errorf("TG_ORGANISER_CHAT_ID: %w", err)
		}
		s.TGChatID = id
	}

	if v := os.Getenv("STRICT_FIELDS"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("STRICT_FIELDS: %w", err)
		}
		s.StrictFields = strict
	}
	return s, nil
}

// TelegramEnabled reports whether both the token and the chat are set.
func (s Settings) TelegramEnabled() bool {
	return s.TGBotToken != "" && s.TGChatID != 0
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
