package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Live          *LiveConfig          `koanf:"live"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig carries HTTP listener settings. There is deliberately no
// write timeout: one would sever long-lived SSE streams.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// URL renders the config as a postgres connection string for pgx and tern.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// LiveConfig tunes the live-delivery path: the event bus and the SSE hub.
type LiveConfig struct {
	BusBuffer        int `koanf:"bus_buffer"`
	SubscriberBuffer int `koanf:"subscriber_buffer"`
	SendTimeoutMs    int `koanf:"send_timeout_ms"`
	KeepAliveSec     int `koanf:"keep_alive_sec"`
	RecentCapacity   int `koanf:"recent_capacity"`
}

func DefaultLiveConfig() *LiveConfig {
	return &LiveConfig{
		BusBuffer:        256,
		SubscriberBuffer: 64,
		SendTimeoutMs:    100,
		KeepAliveSec:     15,
		RecentCapacity:   100,
	}
}

func (c *LiveConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutMs) * time.Millisecond
}

func (c *LiveConfig) KeepAlive() time.Duration {
	return time.Duration(c.KeepAliveSec) * time.Second
}

type ObservabilityConfig struct {
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
	LicenseKey  string `koanf:"license_key"`
	Enabled     bool   `koanf:"enabled"`
}

func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{Enabled: false}
}

func (c *ObservabilityConfig) Validate() error {
	if c.Enabled && c.LicenseKey == "" {
		return fmt.Errorf("observability enabled but license_key is empty")
	}
	return nil
}

// LoadConfig loads the configuration from environment variables using koanf.
func LoadConfig() (mainConfig *Config, err error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")
	err = k.Load(env.Provider("ELDSTREAM_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "ELDSTREAM_"))
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load initial env variables")
	}

	mainConfig = &Config{}
	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal mainconfig")
	}

	validate := validator.New()
	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not validate the struct")
	}

	// optional sections are pointers so absent can be told from zero
	if mainConfig.Live == nil {
		mainConfig.Live = DefaultLiveConfig()
	}
	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	mainConfig.Observability.ServiceName = "eldstream"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	err = mainConfig.Observability.Validate()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid observability config")
	}

	return
}
