package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcarmo/go-tga/internal/codec"
)

// Decoder orientations
const (
	OrientationStream  = "stream"
	OrientationTopDown = "top-down"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Decoder  DecoderConfig  `json:"decoder" yaml:"decoder"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Security SecurityConfig `json:"security" yaml:"security"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// LoadOptions holds command-line override options
type LoadOptions struct {
	Host       string
	Port       string
	LogLevel   string
	ConfigFile string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port         string        `json:"port" yaml:"port" env:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout" env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `json:"idleTimeout" yaml:"idleTimeout" env:"SERVER_IDLE_TIMEOUT" default:"120s"`
}

// DecoderConfig holds decode limits and output orientation
type DecoderConfig struct {
	MaxWidth      int    `json:"maxWidth" yaml:"maxWidth" env:"DECODER_MAX_WIDTH" default:"16384"`
	MaxHeight     int    `json:"maxHeight" yaml:"maxHeight" env:"DECODER_MAX_HEIGHT" default:"16384"`
	MaxPixelBytes int64  `json:"maxPixelBytes" yaml:"maxPixelBytes" env:"DECODER_MAX_PIXEL_BYTES" default:"268435456"`
	Orientation   string `json:"orientation" yaml:"orientation" env:"DECODER_ORIENTATION" default:"stream"`
}

// CacheConfig holds the decoded texture cache configuration
type CacheConfig struct {
	Enabled          bool   `json:"enabled" yaml:"enabled" env:"CACHE_ENABLED" default:"false"`
	Path             string `json:"path" yaml:"path" env:"CACHE_PATH" default:"tga-cache.db"`
	CompressionLevel int    `json:"compressionLevel" yaml:"compressionLevel" env:"CACHE_COMPRESSION_LEVEL" default:"3"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" default:""`
	MaxConnections int      `json:"maxConnections" yaml:"maxConnections" env:"MAX_CONNECTIONS" default:"100"`
	MaxUploadBytes int64    `json:"maxUploadBytes" yaml:"maxUploadBytes" env:"MAX_UPLOAD_BYTES" default:"67108864"`
	EnableTLS      bool     `json:"enableTLS" yaml:"enableTLS" env:"ENABLE_TLS" default:"false"`
	TLSCertFile    string   `json:"tlsCertFile" yaml:"tlsCertFile" env:"TLS_CERT_FILE" default:""`
	TLSKeyFile     string   `json:"tlsKeyFile" yaml:"tlsKeyFile" env:"TLS_KEY_FILE" default:""`
	MinTLSVersion  string   `json:"minTLSVersion" yaml:"minTLSVersion" env:"MIN_TLS_VERSION" default:"1.2"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `json:"level" yaml:"level" env:"LOG_LEVEL" default:"info"`
	Format       string `json:"format" yaml:"format" env:"LOG_FORMAT" default:"text"`
	EnableCaller bool   `json:"enableCaller" yaml:"enableCaller" env:"LOG_ENABLE_CALLER" default:"false"`
	File         string `json:"file" yaml:"file" env:"LOG_FILE" default:""`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Decoder: DecoderConfig{
			MaxWidth:      16384,
			MaxHeight:     16384,
			MaxPixelBytes: codec.DefaultMaxPixelBytes,
			Orientation:   OrientationStream,
		},
		Cache: CacheConfig{
			Enabled:          false,
			Path:             "tga-cache.db",
			CompressionLevel: 3,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{},
			MaxConnections: 100,
			MaxUploadBytes: 64 << 20,
			MinTLSVersion:  "1.2",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	return LoadWithOverrides(LoadOptions{})
}

// LoadWithOverrides loads configuration with command-line overrides.
// Precedence, lowest first: defaults, config file, environment, overrides.
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	config := Default()

	configFile := getOverrideOrEnv(opts.ConfigFile, "CONFIG_FILE", "")
	if configFile != "" {
		if err := config.loadFile(configFile); err != nil {
			return nil, err
		}
	}

	// Server config
	config.Server.Host = getOverrideOrEnv(opts.Host, "SERVER_HOST", config.Server.Host)
	config.Server.Port = getOverrideOrEnv(opts.Port, "SERVER_PORT", config.Server.Port)
	config.Server.ReadTimeout = getDurationWithDefault("SERVER_READ_TIMEOUT", config.Server.ReadTimeout)
	config.Server.WriteTimeout = getDurationWithDefault("SERVER_WRITE_TIMEOUT", config.Server.WriteTimeout)
	config.Server.IdleTimeout = getDurationWithDefault("SERVER_IDLE_TIMEOUT", config.Server.IdleTimeout)

	// Decoder config
	config.Decoder.MaxWidth = getIntWithDefault("DECODER_MAX_WIDTH", config.Decoder.MaxWidth)
	config.Decoder.MaxHeight = getIntWithDefault("DECODER_MAX_HEIGHT", config.Decoder.MaxHeight)
	config.Decoder.MaxPixelBytes = getInt64WithDefault("DECODER_MAX_PIXEL_BYTES", config.Decoder.MaxPixelBytes)
	config.Decoder.Orientation = getEnvWithDefault("DECODER_ORIENTATION", config.Decoder.Orientation)

	// Cache config
	config.Cache.Enabled = getBoolWithDefault("CACHE_ENABLED", config.Cache.Enabled)
	config.Cache.Path = getEnvWithDefault("CACHE_PATH", config.Cache.Path)
	config.Cache.CompressionLevel = getIntWithDefault("CACHE_COMPRESSION_LEVEL", config.Cache.CompressionLevel)

	// Security config
	config.Security.AllowedOrigins = getStringSliceWithDefault("ALLOWED_ORIGINS", config.Security.AllowedOrigins)
	config.Security.MaxConnections = getIntWithDefault("MAX_CONNECTIONS", config.Security.MaxConnections)
	config.Security.MaxUploadBytes = getInt64WithDefault("MAX_UPLOAD_BYTES", config.Security.MaxUploadBytes)
	config.Security.EnableTLS = getBoolWithDefault("ENABLE_TLS", config.Security.EnableTLS)
	config.Security.TLSCertFile = getEnvWithDefault("TLS_CERT_FILE", config.Security.TLSCertFile)
	config.Security.TLSKeyFile = getEnvWithDefault("TLS_KEY_FILE", config.Security.TLSKeyFile)
	config.Security.MinTLSVersion = getEnvWithDefault("MIN_TLS_VERSION", config.Security.MinTLSVersion)

	// Logging config
	config.Logging.Level = getOverrideOrEnv(opts.LogLevel, "LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnvWithDefault("LOG_FORMAT", config.Logging.Format)
	config.Logging.EnableCaller = getBoolWithDefault("LOG_ENABLE_CALLER", config.Logging.EnableCaller)
	config.Logging.File = getEnvWithDefault("LOG_FILE", config.Logging.File)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFile overlays the YAML document at path onto c. Keys that do not map
// to a field are rejected.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return nil
}

// DecoderOptions maps the decoder section to codec options.
func (c *Config) DecoderOptions() codec.Options {
	return codec.Options{
		MaxWidth:      c.Decoder.MaxWidth,
		MaxHeight:     c.Decoder.MaxHeight,
		MaxPixelBytes: c.Decoder.MaxPixelBytes,
		TopDown:       c.Decoder.Orientation == OrientationTopDown,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}

	// Validate decoder config
	if c.Decoder.MaxWidth < 0 || c.Decoder.MaxHeight < 0 {
		return fmt.Errorf("max dimensions cannot be negative")
	}

	if c.Decoder.MaxPixelBytes <= 0 {
		return fmt.Errorf("max pixel bytes must be positive")
	}

	if c.Decoder.Orientation != OrientationStream && c.Decoder.Orientation != OrientationTopDown {
		return fmt.Errorf("invalid decoder orientation: %s", c.Decoder.Orientation)
	}

	// Validate cache config
	if c.Cache.Enabled {
		if c.Cache.Path == "" {
			return fmt.Errorf("cache path must be specified when the cache is enabled")
		}
		if c.Cache.CompressionLevel < 1 || c.Cache.CompressionLevel > 4 {
			return fmt.Errorf("cache compression level must be between 1 and 4")
		}
	}

	// Validate security config
	if c.Security.EnableTLS {
		if c.Security.TLSCertFile == "" || c.Security.TLSKeyFile == "" {
			return fmt.Errorf("TLS certificate and key files must be specified when TLS is enabled")
		}

		if _, err := os.Stat(c.Security.TLSCertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file does not exist: %s", c.Security.TLSCertFile)
		}

		if _, err := os.Stat(c.Security.TLSKeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file does not exist: %s", c.Security.TLSKeyFile)
		}
	}

	if c.Security.MinTLSVersion != "1.2" && c.Security.MinTLSVersion != "1.3" {
		return fmt.Errorf("invalid minimum TLS version: %s", c.Security.MinTLSVersion)
	}

	if c.Security.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be positive")
	}

	if c.Security.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}

	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceWithDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return splitString(value, ",")
	}
	return defaultValue
}

// getOverrideOrEnv returns command-line override value, env value, or default
func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}

func splitString(s, sep string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
