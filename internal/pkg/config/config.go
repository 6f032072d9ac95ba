package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Hazard    HazardConfig    `mapstructure:"hazard"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Shelters  SheltersConfig  `mapstructure:"shelters"`
	Wildfire  WildfireConfig  `mapstructure:"wildfire"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName   string `mapstructure:"service_name"`
	CollectorAddr string `mapstructure:"collector_addr"`
	Enabled       bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HazardConfig struct {
	DefaultVertexCount int `mapstructure:"default_vertex_count"`
}

type RoutingConfig struct {
	TmapBaseURL     string        `mapstructure:"tmap_base_url"`
	TmapAppKey      string        `mapstructure:"tmap_app_key"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	CacheEnabled    bool          `mapstructure:"cache_enabled"`
}

type SheltersConfig struct {
	// Catalog is "file" or "postgres".
	Catalog              string  `mapstructure:"catalog"`
	CatalogPath          string  `mapstructure:"catalog_path"`
	ProviderURL          string  `mapstructure:"provider_url"`
	ProviderKey          string  `mapstructure:"provider_key"`
	ProviderCacheTTL     int     `mapstructure:"provider_cache_ttl"`
	ProviderMaxDistanceM float64 `mapstructure:"provider_max_distance_m"`
	CatalogMaxDistanceM  float64 `mapstructure:"catalog_max_distance_m"`
}

type WildfireConfig struct {
	SourcePath      string `mapstructure:"source_path"`
	FrameIntervalMS int    `mapstructure:"frame_interval_ms"`
}

// FrameInterval is the playback tick.
func (w WildfireConfig) FrameInterval() time.Duration {
	return time.Duration(w.FrameIntervalMS) * time.Millisecond
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
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

	// Environment variables: EVACGUIDE_ROUTING_TMAP_APP_KEY → routing.tmap_app_key
	v.SetEnvPrefix("EVACGUIDE")
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

// Every key needs a default, otherwise AutomaticEnv never sees it during Unmarshal.
func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "evacguide")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "evacguide")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", true)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.collector_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("hazard.default_vertex_count", 64)
	v.SetDefault("routing.tmap_base_url", "https://apis.openapi.sk.com/tmap")
	v.SetDefault("routing.tmap_app_key", "")
	v.SetDefault("routing.provider_timeout", 10*time.Second)
	v.SetDefault("routing.cache_enabled", true)
	v.SetDefault("shelters.catalog", "file")
	v.SetDefault("shelters.catalog_path", "data/shelters.json")
	v.SetDefault("shelters.provider_url", "")
	v.SetDefault("shelters.provider_key", "")
	v.SetDefault("shelters.provider_cache_ttl", 300)
	v.SetDefault("shelters.provider_max_distance_m", 50000.0)
	v.SetDefault("shelters.catalog_max_distance_m", 0.0)
	v.SetDefault("wildfire.source_path", "")
	v.SetDefault("wildfire.frame_interval_ms", 1000)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "wildfire-ingest")
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
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Hazard.DefaultVertexCount < 16 || c.Hazard.DefaultVertexCount > 256 {
		errs = append(errs, fmt.Sprintf("hazard.default_vertex_count must be 16-256, got %d", c.Hazard.DefaultVertexCount))
	}
	if c.Routing.TmapBaseURL != "" {
		if u, err := url.Parse(c.Routing.TmapBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("routing.tmap_base_url is not an absolute URL: %q", c.Routing.TmapBaseURL))
		}
	}
	if c.Routing.ProviderTimeout <= 0 {
		errs = append(errs, "routing.provider_timeout must be positive")
	}
	switch c.Shelters.Catalog {
	case "file":
		if c.Shelters.CatalogPath == "" {
			errs = append(errs, "shelters.catalog_path is required for the file catalog")
		}
	case "postgres":
		errs = append(errs, c.Database.validate()...)
	default:
		errs = append(errs, fmt.Sprintf("shelters.catalog must be file or postgres, got %q", c.Shelters.Catalog))
	}
	if c.Shelters.ProviderCacheTTL < 0 {
		errs = append(errs, "shelters.provider_cache_ttl must not be negative")
	}
	if c.Shelters.ProviderMaxDistanceM < 0 {
		errs = append(errs, "shelters.provider_max_distance_m must not be negative")
	}
	if c.Shelters.CatalogMaxDistanceM < 0 {
		errs = append(errs, "shelters.catalog_max_distance_m must not be negative")
	}
	if c.Wildfire.FrameIntervalMS <= 0 {
		errs = append(errs, "wildfire.frame_interval_ms must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (d DatabaseConfig) validate() []string {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user is required")
	}
	if d.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	return errs
}
