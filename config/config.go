package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPath = "./config/config.yaml"
	envPrefix   = "POKER_"
)

type HTTP struct {
	Addr           string        `yaml:"addr" env:"ADDR"`
	ReadTimeout    time.Duration `yaml:"readTimeout" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idleTimeout" env:"IDLE_TIMEOUT"`
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"REQUEST_TIMEOUT"`
	AllowedOrigins []string      `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS"`
	PingEvery      time.Duration `yaml:"pingEvery" env:"PING_EVERY"` // websocket keepalive
}

type GRPC struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

type Logging struct {
	Env       string `yaml:"env" env:"ENV"`              // dev|stage|prod
	Service   string `yaml:"service" env:"SERVICE"`      // poker-service
	Version   string `yaml:"version" env:"VERSION"`      // v0.1.0
	Backend   string `yaml:"backend" env:"BACKEND"`      // std|zap
	Level     string `yaml:"level" env:"LEVEL"`          // debug|info|warn|error
	AddSource bool   `yaml:"addSource" env:"ADD_SOURCE"` // false|true
	Debug     bool   `yaml:"debug" env:"DEBUG"`          // false|true
}

type Game struct {
	CodeLength  int `yaml:"codeLength" env:"CODE_LENGTH"`
	MaxMessages int `yaml:"maxMessages" env:"MAX_MESSAGES"` // 0 keeps every message
}

type Session struct {
	Secret       string        `yaml:"secret" env:"SECRET"` // empty: random per process
	TTL          time.Duration `yaml:"ttl" env:"TTL"`
	Issuer       string        `yaml:"issuer" env:"ISSUER"`
	CookieName   string        `yaml:"cookieName" env:"COOKIE_NAME"`
	SecureCookie bool          `yaml:"secureCookie" env:"SECURE_COOKIE"`
}

// Postgres is optional. With an empty DSN the event journal only logs.
type Postgres struct {
	DSN           string `yaml:"dsn" env:"DSN"`
	MaxConns      int32  `yaml:"maxConns" env:"MAX_CONNS"`
	JournalBuffer int    `yaml:"journalBuffer" env:"JOURNAL_BUFFER"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http" envPrefix:"HTTP_"`
	GRPC     GRPC     `yaml:"grpc" envPrefix:"GRPC_"`
	Logging  Logging  `yaml:"logging" envPrefix:"LOG_"`
	Game     Game     `yaml:"game" envPrefix:"GAME_"`
	Session  Session  `yaml:"session" envPrefix:"SESSION_"`
	Postgres Postgres `yaml:"postgres" envPrefix:"POSTGRES_"`
}

// LoadConfig reads the yaml file at CONFIG_PATH, then applies POKER_*
// environment overrides. A .env file in the working directory is loaded into
// the environment first. The default config path may be absent; an explicit
// CONFIG_PATH must exist.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	path, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit || path == "" {
		path, explicit = defaultPath, false
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	// установка дефолтов, если значения не указаны
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":9090"
	}
	c.HTTP.ReadTimeout = durationOr(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = durationOr(c.HTTP.WriteTimeout, 15*time.Second)
	c.HTTP.IdleTimeout = durationOr(c.HTTP.IdleTimeout, 60*time.Second)
	c.HTTP.RequestTimeout = durationOr(c.HTTP.RequestTimeout, 30*time.Second)
	c.HTTP.PingEvery = durationOr(c.HTTP.PingEvery, 15*time.Second)

	if c.Logging.Service == "" {
		c.Logging.Service = "poker-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	if c.Game.CodeLength == 0 {
		c.Game.CodeLength = 4
	}
	if c.Game.CodeLength < 1 || c.Game.CodeLength > 12 {
		return fmt.Errorf("game.codeLength must be between 1 and 12, got %d", c.Game.CodeLength)
	}
	if c.Game.MaxMessages < 0 {
		return errors.New("game.maxMessages must not be negative")
	}

	c.Session.TTL = durationOr(c.Session.TTL, 24*time.Hour)
	if c.Session.Issuer == "" {
		c.Session.Issuer = c.Logging.Service
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "poker_session"
	}

	if c.Postgres.JournalBuffer <= 0 {
		c.Postgres.JournalBuffer = 1024
	}
	return nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
