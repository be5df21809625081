package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Orders    OrdersConfig    `yaml:"orders"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	MetricsPort     int           `yaml:"metrics_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Timezone        string        `yaml:"timezone"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
}

type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	SeedMenu      bool   `yaml:"seed_menu"`
}

type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	CustomerTokenTTL time.Duration `yaml:"customer_token_ttl"`
	StaffTokenTTL    time.Duration `yaml:"staff_token_ttl"`
	AdminName        string        `yaml:"admin_name"`
	AdminPhone       string        `yaml:"admin_phone"`
	AdminPassword    string        `yaml:"admin_password"`
}

type OrdersConfig struct {
	Pricing            string `yaml:"pricing"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int    `yaml:"rate_limit_burst"`
}

type NotifyConfig struct {
	Provider    string        `yaml:"provider"`
	Timeout     time.Duration `yaml:"timeout"`
	FrontendURL string        `yaml:"frontend_url"`
	SMS         SMSConfig     `yaml:"sms"`
	AMQP        AMQPConfig    `yaml:"amqp"`
	Kafka       KafkaConfig   `yaml:"kafka"`
}

type SMSConfig struct {
	APIURL     string `yaml:"api_url"`
	APIKey     string `yaml:"api_key"`
	SenderID   string `yaml:"sender_id"`
	TemplateID string `yaml:"template_id"`
	TestMode   bool   `yaml:"test_mode"`
}

type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			MetricsPort:     9090,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Timezone:        "Local",
			AllowedOrigin:   "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Driver:        "sqlite3",
			DSN:           "tableside.db",
			MongoDatabase: "tableside",
			SeedMenu:      true,
		},
		Auth: AuthConfig{
			CustomerTokenTTL: 7 * 24 * time.Hour,
			StaffTokenTTL:    24 * time.Hour,
			AdminName:        "Administrator",
		},
		Orders: OrdersConfig{
			Pricing:            "submitted",
			RateLimitPerMinute: 30,
			RateLimitBurst:     10,
		},
		Notify: NotifyConfig{
			Provider: "log",
			Timeout:  20 * time.Second,
			AMQP: AMQPConfig{
				Exchange:   "notifications_fanout",
				RoutingKey: "order.delivered",
			},
			Kafka: KafkaConfig{Topic: "tableside.notifications"},
		},
		Log:       LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{ServiceName: "tableside"},
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error; the defaults and environment are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) is required")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
		}
	case "mongo":
		if c.Database.MongoURI == "" {
			return errors.New("database.mongo_uri (or MONGODB_URI) is required for driver mongo")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Notify.Provider {
	case "", "none", "log":
	case "sms":
		if c.Notify.SMS.APIURL == "" && !c.Notify.SMS.TestMode {
			return errors.New("notify.sms.api_url is required unless test_mode is set")
		}
	case "amqp":
		if c.Notify.AMQP.URL == "" {
			return errors.New("notify.amqp.url is required for provider amqp")
		}
	case "kafka":
		if strings.TrimSpace(c.Notify.Kafka.Brokers) == "" {
			return errors.New("notify.kafka.brokers is required for provider kafka")
		}
	default:
		return fmt.Errorf("unsupported notify provider %q", c.Notify.Provider)
	}
	if c.Notify.Timeout <= 0 {
		return errors.New("notify.timeout must be positive")
	}
	if _, err := c.Server.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the timezone that defines the restaurant's calendar day
func (s ServerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("server.timezone: %w", err)
	}
	return loc, nil
}

func applyEnv(c *Config) {
	c.Server.Port = readInt("TABLESIDE_PORT", c.Server.Port)
	c.Server.MetricsPort = readInt("TABLESIDE_METRICS_PORT", c.Server.MetricsPort)
	c.Server.Timezone = readString("TABLESIDE_TIMEZONE", c.Server.Timezone)
	c.Server.AllowedOrigin = readString("FRONTEND_URL", c.Server.AllowedOrigin)

	c.Database.Driver = readString("DATABASE_DRIVER", c.Database.Driver)
	c.Database.DSN = readString("DATABASE_DSN", c.Database.DSN)
	c.Database.MongoURI = readString("MONGODB_URI", c.Database.MongoURI)
	c.Database.MongoDatabase = readString("MONGODB_DATABASE", c.Database.MongoDatabase)

	c.Auth.JWTSecret = readString("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AdminPhone = readString("ADMIN_PHONE", c.Auth.AdminPhone)
	c.Auth.AdminPassword = readString("ADMIN_PASSWORD", c.Auth.AdminPassword)

	c.Orders.Pricing = readString("ORDER_PRICING", c.Orders.Pricing)

	c.Notify.Provider = readString("NOTIFY_PROVIDER", c.Notify.Provider)
	c.Notify.FrontendURL = readString("FRONTEND_URL", c.Notify.FrontendURL)
	c.Notify.SMS.APIURL = readString("SMS_API_URL", c.Notify.SMS.APIURL)
	c.Notify.SMS.APIKey = readString("SMS_API_KEY", c.Notify.SMS.APIKey)
	c.Notify.SMS.SenderID = readString("SMS_SENDER_ID", c.Notify.SMS.SenderID)
	c.Notify.SMS.TemplateID = readString("SMS_TEMPLATE_ID", c.Notify.SMS.TemplateID)
	c.Notify.SMS.TestMode = readBool("SMS_TEST_MODE", c.Notify.SMS.TestMode)
	c.Notify.AMQP.URL = readString("AMQP_URL", c.Notify.AMQP.URL)
	c.Notify.Kafka.Brokers = readString("KAFKA_BROKERS", c.Notify.Kafka.Brokers)

	c.Log.Level = readString("LOG_LEVEL", c.Log.Level)
	c.Telemetry.OTLPEndpoint = readString("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.Telemetry.Insecure = readBool("OTEL_EXPORTER_OTLP_INSECURE", c.Telemetry.Insecure)
}

func readString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
