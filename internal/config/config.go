package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/vjranagit/latency/internal/logging"
	"github.com/vjranagit/latency/pkg/api"
)

// EnvPrefix prefixes every environment variable, e.g. LATENCY_DATA_SOURCE
const EnvPrefix = "LATENCY"

// Config holds the application configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	CORS   CORSConfig   `mapstructure:"cors"`
	Data   DataConfig   `mapstructure:"data"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	Endpoint     string        `mapstructure:"endpoint"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	Envelope     string        `mapstructure:"envelope"`
	APIVersion   string        `mapstructure:"api_version"`
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// DataConfig describes where the telemetry snapshot comes from
type DataConfig struct {
	Source           string `mapstructure:"source"`
	CompressionLevel int    `mapstructure:"compression_level"`
}

// CacheConfig holds result cache settings; capacity 0 disables the cache
type CacheConfig struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	server := api.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			ListenAddr:   server.ListenAddr,
			Endpoint:     server.Endpoint,
			ReadTimeout:  server.ReadTimeout,
			WriteTimeout: server.WriteTimeout,
			MaxBodyBytes: server.MaxBodyBytes,
			Envelope:     string(server.Envelope),
			APIVersion:   server.APIVersion,
		},
		CORS: CORSConfig{
			AllowedOrigins:   server.CORS.AllowedOrigins,
			AllowedMethods:   server.CORS.AllowedMethods,
			AllowedHeaders:   server.CORS.AllowedHeaders,
			AllowCredentials: server.CORS.AllowCredentials,
			MaxAge:           server.CORS.MaxAge,
		},
		Data: DataConfig{
			Source:           "./data/telemetry.json",
			CompressionLevel: 3,
		},
		Cache: CacheConfig{
			Capacity: 1024,
			TTL:      10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatJSON,
		},
	}
}

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"listen-addr":       "server.listen_addr",
	"endpoint":          "server.endpoint",
	"envelope":          "server.envelope",
	"source":            "data.source",
	"compression-level": "data.compression_level",
	"cache-capacity":    "cache.capacity",
	"log-level":         "log.level",
	"log-format":        "log.format",
}

// RegisterFlags adds the daemon's flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.String("config", "", "path to a YAML, JSON or TOML config file")
	fs.String("listen-addr", d.Server.ListenAddr, "HTTP listen address")
	fs.String("endpoint", d.Server.Endpoint, "path of the latency endpoint")
	fs.String("envelope", d.Server.Envelope, "response envelope: flat, regions or versioned")
	fs.String("source", d.Data.Source, "telemetry source: JSON file (.json, .json.gz, .json.zst) or badger:// snapshot")
	fs.Int("cache-capacity", d.Cache.Capacity, "result cache entries, 0 disables caching")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("log-format", d.Log.Format, "log format: json or console")
}

// RegisterImportFlags adds the snapshot importer's flags to fs
func RegisterImportFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.String("config", "", "path to a YAML, JSON or TOML config file")
	fs.String("source", d.Data.Source, "telemetry file to import (.json, .json.gz, .json.zst)")
	fs.Int("compression-level", d.Data.CompressionLevel, "zstd level for snapshot blocks, 1 (fastest) to 4 (best)")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("log-format", d.Log.Format, "log format: json or console")
}

// Load builds the configuration from defaults, an optional config file,
// LATENCY_* environment variables and flags, in increasing precedence.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	configFile := v.GetString("config")
	if fs != nil {
		if flag := fs.Lookup("config"); flag != nil && flag.Changed {
			configFile = flag.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("config", "")

	v.SetDefault("server.listen_addr", d.Server.ListenAddr)
	v.SetDefault("server.endpoint", d.Server.Endpoint)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.envelope", d.Server.Envelope)
	v.SetDefault("server.api_version", d.Server.APIVersion)

	v.SetDefault("cors.allowed_origins", d.CORS.AllowedOrigins)
	v.SetDefault("cors.allowed_methods", d.CORS.AllowedMethods)
	v.SetDefault("cors.allowed_headers", d.CORS.AllowedHeaders)
	v.SetDefault("cors.allow_credentials", d.CORS.AllowCredentials)
	v.SetDefault("cors.max_age", d.CORS.MaxAge)

	v.SetDefault("data.source", d.Data.Source)
	v.SetDefault("data.compression_level", d.Data.CompressionLevel)

	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// ToServerConfig converts to api.Config
func (c *Config) ToServerConfig(version string) api.Config {
	envelope, _ := api.ParseEnvelope(c.Server.Envelope)

	return api.Config{
		ListenAddr:   c.Server.ListenAddr,
		Endpoint:     c.Server.Endpoint,
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: c.Server.WriteTimeout,
		MaxBodyBytes: c.Server.MaxBodyBytes,
		Envelope:     envelope,
		APIVersion:   c.Server.APIVersion,
		Version:      version,
		CORS: api.CORSConfig{
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedMethods:   c.CORS.AllowedMethods,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			AllowCredentials: c.CORS.AllowCredentials,
			MaxAge:           c.CORS.MaxAge,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	if !strings.HasPrefix(c.Server.Endpoint, "/") || strings.ContainsAny(c.Server.Endpoint, " {}") {
		return fmt.Errorf("server endpoint must be a path starting with /")
	}
	if c.Server.Endpoint == "/health" || c.Server.Endpoint == "/metrics" {
		return fmt.Errorf("server endpoint %s is reserved", c.Server.Endpoint)
	}

	if _, err := api.ParseEnvelope(c.Server.Envelope); err != nil {
		return err
	}

	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("max body bytes must be at least 1")
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin is required")
	}

	if c.Data.Source == "" {
		return fmt.Errorf("data source is required")
	}

	if c.Data.CompressionLevel < 1 || c.Data.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache capacity must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Log.Format != logging.FormatJSON && c.Log.Format != logging.FormatConsole {
		return fmt.Errorf("log format must be %s or %s", logging.FormatJSON, logging.FormatConsole)
	}

	return nil
}
