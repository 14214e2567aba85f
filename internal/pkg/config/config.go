package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Maps      MapsConfig      `mapstructure:"maps"`
	Sampler   SamplerConfig   `mapstructure:"sampler"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	// SyncPlanning runs Plan inside the request instead of handing it to the planner worker.
	SyncPlanning bool `mapstructure:"sync_planning"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
	// NearbyTTL is how long nearby search results stay cached, in seconds.
	NearbyTTL int `mapstructure:"nearby_ttl"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type MapsConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (m MapsConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

type SamplerConfig struct {
	SponsorProbability    float64  `mapstructure:"sponsor_probability"`
	SponsorRadiusMiles    float64  `mapstructure:"sponsor_radius_miles"`
	Damping               float64  `mapstructure:"damping"`
	DefaultThresholdMiles float64  `mapstructure:"default_threshold_miles"`
	DefaultCategories     []string `mapstructure:"default_categories"`
}

type AuthConfig struct {
	TokenTTLMinutes int `mapstructure:"token_ttl_minutes"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: DETOUR_MAPS_API_KEY → maps.api_key
	v.SetEnvPrefix("DETOUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.sync_planning", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "detour")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "detour")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.nearby_ttl", 900)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "detour-planner")
	v.SetDefault("maps.api_key", "")
	v.SetDefault("maps.base_url", "")
	v.SetDefault("maps.timeout_seconds", 10)
	v.SetDefault("sampler.sponsor_probability", 0.2)
	v.SetDefault("sampler.sponsor_radius_miles", 25.0)
	v.SetDefault("sampler.damping", 0.75)
	v.SetDefault("sampler.default_threshold_miles", 10.0)
	v.SetDefault("sampler.default_categories", []string{"restaurant", "atm"})
	v.SetDefault("auth.token_ttl_minutes", 60)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Maps.TimeoutSeconds <= 0 {
		errs = append(errs, "maps.timeout_seconds must be positive")
	}
	if p := c.Sampler.SponsorProbability; math.IsNaN(p) || p < 0 || p > 1 {
		errs = append(errs, fmt.Sprintf("sampler.sponsor_probability must be in [0,1], got %v", p))
	}
	if c.Sampler.SponsorRadiusMiles < 0 {
		errs = append(errs, "sampler.sponsor_radius_miles must not be negative")
	}
	if d := c.Sampler.Damping; math.IsNaN(d) || d < 0 || d > 1 {
		errs = append(errs, fmt.Sprintf("sampler.damping must be in [0,1], got %v", d))
	}
	if c.Sampler.DefaultThresholdMiles <= 0 {
		errs = append(errs, "sampler.default_threshold_miles must be positive")
	}
	if len(c.Sampler.DefaultCategories) == 0 {
		errs = append(errs, "sampler.default_categories must not be empty")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		errs = append(errs, "auth.token_ttl_minutes must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RequireMapsKey reports a missing API key for binaries that call Google.
func (c *Config) RequireMapsKey() error {
	if c.Maps.APIKey == "" {
		return fmt.Errorf("maps.api_key is required (set DETOUR_MAPS_API_KEY)")
	}
	return nil
}
