package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           int      `env:"PORT" envDefault:"3000"`
	Environment    string   `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	Room      RoomConfig
	WebSocket WebSocketConfig
	Redis     RedisConfig
}

type RoomConfig struct {
	Capacity      int           `env:"ROOM_CAPACITY" envDefault:"7"`
	ChatRetention int           `env:"CHAT_RETENTION" envDefault:"100"`
	ChatHistory   int           `env:"CHAT_HISTORY" envDefault:"50"`
	EmptyTTL      time.Duration `env:"EMPTY_ROOM_TTL" envDefault:"60s"`
}

type WebSocketConfig struct {
	EventRate      float64 `env:"EVENT_RATE" envDefault:"20"`
	EventBurst     int     `env:"EVENT_BURST" envDefault:"40"`
	MaxMessageSize int64   `env:"MAX_MESSAGE_SIZE" envDefault:"65536"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int           `env:"REDIS_PORT" envDefault:"6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_TTL" envDefault:"24h"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.Room.Capacity <= 0 {
		return fmt.Errorf("ROOM_CAPACITY must be positive, got %d", c.Room.Capacity)
	}
	if c.Room.ChatHistory > c.Room.ChatRetention {
		return fmt.Errorf("CHAT_HISTORY (%d) exceeds CHAT_RETENTION (%d)", c.Room.ChatHistory, c.Room.ChatRetention)
	}

	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins

	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
