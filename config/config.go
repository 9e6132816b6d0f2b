package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadEnv loads a .env file into the process environment when one exists.
func LoadEnv() {
	_ = godotenv.Load()
}

type ServerConfig struct {
	Port            string
	PublicBaseURL   string
	FrontendURL     string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type GatewayConfig struct {
	Provider           string
	BaseURL            string
	SecretKey          string
	KeyID              string
	WebhookSecret      string
	SettlementCurrency string
	Timeout            time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type QueueConfig struct {
	URL               string
	NotificationQueue string
	PrefetchCount     int
}

type RateLimitConfig struct {
	Initiate string
	Verify   string
	Callback string
	Booking  string
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// Config is the fully resolved application configuration. It is built once at
// startup and handed to the components that need it.
type Config struct {
	Server      ServerConfig
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	// BadWordsFile lists words rejected in listing and review text.
	BadWordsFile string
	// ImageServiceURL is the image store listing photos are uploaded to.
	ImageServiceURL string
	Gateway         GatewayConfig
	SMTP            SMTPConfig
	Queue           QueueConfig
	RateLimit       RateLimitConfig
	Cache           CacheConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8081")
	v.SetDefault("public_base_url", "http://localhost:8081")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("allowed_origins", "http://localhost:3000")

	v.SetDefault("gateway_provider", "chapa")
	v.SetDefault("gateway_base_url", "https://api.chapa.co/v1/")
	v.SetDefault("settlement_currency", "ETB")
	v.SetDefault("gateway_timeout", "30s")

	v.SetDefault("smtp_port", 587)

	v.SetDefault("notification_queue", "staybook.notifications")
	v.SetDefault("queue_prefetch", 10)

	v.SetDefault("rate_limit_initiate", "10-1m")
	v.SetDefault("rate_limit_verify", "30-1m")
	v.SetDefault("rate_limit_callback", "120-1m")
	v.SetDefault("rate_limit_booking", "20-10m")

	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", "60s")
	v.SetDefault("cache_prefix", "staybook:cache")
}

// Load resolves configuration from the environment, optionally layered over the
// YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:            v.GetString("port"),
			PublicBaseURL:   strings.TrimRight(v.GetString("public_base_url"), "/"),
			FrontendURL:     strings.TrimRight(v.GetString("frontend_url"), "/"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
			AllowedOrigins:  splitList(v.GetString("allowed_origins")),
		},
		DatabaseURL:     v.GetString("database_url"),
		RedisURL:        v.GetString("redis_url"),
		JWTSecret:       v.GetString("jwt_secret"),
		BadWordsFile:    v.GetString("badwords_file"),
		ImageServiceURL: v.GetString("image_service_url"),
		Gateway: GatewayConfig{
			Provider:           strings.ToLower(v.GetString("gateway_provider")),
			BaseURL:            v.GetString("gateway_base_url"),
			SecretKey:          v.GetString("gateway_secret_key"),
			KeyID:              v.GetString("gateway_key_id"),
			WebhookSecret:      v.GetString("gateway_webhook_secret"),
			SettlementCurrency: v.GetString("settlement_currency"),
			Timeout:            v.GetDuration("gateway_timeout"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp_host"),
			Port:     v.GetInt("smtp_port"),
			Username: v.GetString("smtp_username"),
			Password: v.GetString("smtp_password"),
			From:     v.GetString("from_email"),
		},
		Queue: QueueConfig{
			URL:               v.GetString("rabbitmq_url"),
			NotificationQueue: v.GetString("notification_queue"),
			PrefetchCount:     v.GetInt("queue_prefetch"),
		},
		RateLimit: RateLimitConfig{
			Initiate: v.GetString("rate_limit_initiate"),
			Verify:   v.GetString("rate_limit_verify"),
			Callback: v.GetString("rate_limit_callback"),
			Booking:  v.GetString("rate_limit_booking"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("cache_enabled"),
			TTL:     v.GetDuration("cache_ttl"),
			Prefix:  v.GetString("cache_prefix"),
		},
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
