package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full process configuration.
type Config struct {
	Environment   string              `yaml:"environment" validate:"required,oneof=development staging production test"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	AI            AIConfig            `yaml:"ai"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Share         ShareConfig         `yaml:"share"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Port               int           `yaml:"port" validate:"gt=0,lte=65535"`
	RateLimitPerSecond int           `yaml:"rate_limit_per_second" validate:"gte=0"`
	RateLimitBurst     int           `yaml:"rate_limit_burst" validate:"gte=0"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	PublicBaseURL      string        `yaml:"public_base_url" validate:"required,url"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Name     string `yaml:"name" validate:"required"`
	SSLMode  string `yaml:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// DSN renders the connection string used by pgx.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// AI backends.
const (
	BackendStudio = "studio"
	BackendVertex = "vertex"
	BackendOpenAI = "openai"
)

type AIConfig struct {
	Backend       string        `yaml:"backend" validate:"oneof=studio vertex openai"`
	Model         string        `yaml:"model"`
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	GCPProject    string        `yaml:"gcp_project" validate:"required_if=Backend vertex"`
	GCPLocation   string        `yaml:"gcp_location"`
	OpenAIAPIKey  string        `yaml:"openai_api_key" validate:"required_if=Backend openai"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	Temperature   float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
}

type ProvidersConfig struct {
	GoogleMapsAPIKey  string        `yaml:"google_maps_api_key"`
	OpenWeatherAPIKey string        `yaml:"openweather_api_key"`
	GoogleMapsBaseURL string        `yaml:"google_maps_base_url" validate:"required,url"`
	NominatimBaseURL  string        `yaml:"nominatim_base_url" validate:"required,url"`
	OverpassURL       string        `yaml:"overpass_url" validate:"required,url"`
	OpenWeatherURL    string        `yaml:"openweather_url" validate:"required,url"`
	UserAgent         string        `yaml:"user_agent" validate:"required"`
	HTTPTimeout       time.Duration `yaml:"http_timeout" validate:"gt=0"`
	SearchRadius      int           `yaml:"search_radius" validate:"gt=0"`
}

type ShareConfig struct {
	Key string `yaml:"key" validate:"required"`
	IV  string `yaml:"iv" validate:"required,len=16"`
}

type CacheConfig struct {
	GeocodeTTL time.Duration `yaml:"geocode_ttl"`
	DraftTTL   time.Duration `yaml:"draft_ttl"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	LogLevel       string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat      string `yaml:"log_format" validate:"oneof=json text"`
	ServiceName    string `yaml:"service_name"`
}

// Default returns the configuration used before any file or environment override.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:               8000,
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
			ShutdownTimeout:    15 * time.Second,
			PublicBaseURL:      "http://localhost:8000",
			AllowedOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "loci_trips",
			SSLMode: "disable",
		},
		AI: AIConfig{
			Backend:     BackendStudio,
			Model:       "gemini-2.0-flash",
			GCPLocation: "us-central1",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Providers: ProvidersConfig{
			GoogleMapsBaseURL: "https://maps.googleapis.com",
			NominatimBaseURL:  "https://nominatim.openstreetmap.org",
			OverpassURL:       "https://overpass-api.de/api/interpreter",
			OpenWeatherURL:    "https://api.openweathermap.org",
			UserAgent:         "loci-trip-planner/1.0",
			HTTPTimeout:       10 * time.Second,
			SearchRadius:      2000,
		},
		Share: ShareConfig{
			Key: "loci-share-key-0123456789abcdef!",
			IV:  "loci-share-iv-01",
		},
		Cache: CacheConfig{
			GeocodeTTL: 24 * time.Hour,
			DraftTTL:   time.Hour,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: true,
			LogLevel:       "info",
			LogFormat:      "json",
			ServiceName:    "loci-trip-planner",
		},
	}
}

// Load builds the configuration from defaults, config/base.yaml, config/<APP_ENV>.yaml,
// an optional .env file and finally the process environment.
func Load() (*Config, error) {
	return LoadFrom(envOr("CONFIG_DIR", "config"))
}

// LoadFrom is Load with an explicit configuration directory.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if err := loadYAML(filepath.Join(dir, "base.yaml"), cfg); err != nil {
		return nil, err
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		if err := loadYAML(filepath.Join(dir, strings.ToLower(env)+".yaml"), cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func loadYAML(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Environment, "APP_ENV")

	setInt(&cfg.Server.Port, "SERVER_PORT")
	setInt(&cfg.Server.RateLimitPerSecond, "RATE_LIMIT_PER_SECOND")
	setInt(&cfg.Server.RateLimitBurst, "RATE_LIMIT_BURST")
	setDuration(&cfg.Server.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	setString(&cfg.Server.PublicBaseURL, "PUBLIC_BASE_URL")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}

	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")

	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")

	setString(&cfg.AI.Backend, "AI_BACKEND")
	setString(&cfg.AI.Model, "AI_MODEL")
	setString(&cfg.AI.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.AI.GCPProject, "GCP_PROJECT_ID")
	setString(&cfg.AI.GCPLocation, "GCP_LOCATION")
	setString(&cfg.AI.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.AI.OpenAIBaseURL, "OPENAI_BASE_URL")
	setDuration(&cfg.AI.Timeout, "AI_TIMEOUT")
	if v := os.Getenv("AI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.AI.Temperature = float32(f)
		}
	}

	setString(&cfg.Providers.GoogleMapsAPIKey, "GOOGLE_MAPS_API_KEY")
	setString(&cfg.Providers.OpenWeatherAPIKey, "OPENWEATHER_API_KEY")
	setString(&cfg.Providers.GoogleMapsBaseURL, "GOOGLE_MAPS_BASE_URL")
	setString(&cfg.Providers.NominatimBaseURL, "NOMINATIM_BASE_URL")
	setString(&cfg.Providers.OverpassURL, "OVERPASS_URL")
	setString(&cfg.Providers.OpenWeatherURL, "OPENWEATHER_URL")
	setString(&cfg.Providers.UserAgent, "PROVIDER_USER_AGENT")
	setDuration(&cfg.Providers.HTTPTimeout, "PROVIDER_HTTP_TIMEOUT")

	setString(&cfg.Share.Key, "SHARE_KEY")
	setString(&cfg.Share.IV, "SHARE_IV")

	setDuration(&cfg.Cache.GeocodeTTL, "GEOCODE_CACHE_TTL")
	setDuration(&cfg.Cache.DraftTTL, "DRAFT_CACHE_TTL")

	setString(&cfg.Observability.LogLevel, "LOG_LEVEL")
	setString(&cfg.Observability.LogFormat, "LOG_FORMAT")
	setString(&cfg.Observability.ServiceName, "SERVICE_NAME")
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.MetricsEnabled = b
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
