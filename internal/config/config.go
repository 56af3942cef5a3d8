package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// #region config
// Config is the monitor's runtime configuration, read from DROWSY_* variables.
type Config struct {
	DBPath       string `validate:"required_if=EventBackend sqlite"`
	EventBackend string `validate:"oneof=sqlite redis memory"`
	EventCap     int    `validate:"gte=1,lte=10000"`

	RedisAddr     string `validate:"required_if=EventBackend redis"`
	RedisPassword string
	RedisDB       int    `validate:"gte=0"`
	RedisPrefix   string `validate:"required_if=EventBackend redis"`

	GRPCAddr    string  `validate:"required"`
	ScreenWidth float64 `validate:"gt=0"`
	QueueSize   int     `validate:"gte=1"`

	AlarmCommand string
	AlertCommand string

	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string

	Driver        string
	Operator      string `validate:"omitempty,email"`
	ReportPath    string
	RecordSamples bool
}

// #endregion config

// #region defaults
// Defaults returns the configuration used when no variables are set.
func Defaults() Config {
	return Config{
		DBPath:       "drowsiness.db",
		EventBackend: "sqlite",
		EventCap:     50,
		RedisAddr:    "localhost:6379",
		RedisPrefix:  "drowsiness",
		GRPCAddr:     "localhost:50061",
		ScreenWidth:  1080,
		QueueSize:    256,
		LogLevel:     "info",
		Driver:       "driver",
		ReportPath:   "report.json",
	}
}

// #endregion defaults

// #region load
// Load reads an optional .env file, then the process environment, and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	var err error

	cfg.DBPath = str(getenv, "DROWSY_DB", cfg.DBPath)
	cfg.EventBackend = strings.ToLower(str(getenv, "DROWSY_EVENT_BACKEND", cfg.EventBackend))
	if cfg.EventCap, err = integer(getenv, "DROWSY_EVENT_CAP", cfg.EventCap); err != nil {
		return Config{}, err
	}
	cfg.RedisAddr = str(getenv, "DROWSY_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = str(getenv, "DROWSY_REDIS_PASSWORD", cfg.RedisPassword)
	if cfg.RedisDB, err = integer(getenv, "DROWSY_REDIS_DB", cfg.RedisDB); err != nil {
		return Config{}, err
	}
	cfg.RedisPrefix = str(getenv, "DROWSY_REDIS_PREFIX", cfg.RedisPrefix)
	cfg.GRPCAddr = str(getenv, "DROWSY_GRPC_ADDR", cfg.GRPCAddr)
	if cfg.ScreenWidth, err = float(getenv, "DROWSY_SCREEN_WIDTH", cfg.ScreenWidth); err != nil {
		return Config{}, err
	}
	if cfg.QueueSize, err = integer(getenv, "DROWSY_QUEUE_SIZE", cfg.QueueSize); err != nil {
		return Config{}, err
	}
	cfg.AlarmCommand = str(getenv, "DROWSY_ALARM_CMD", cfg.AlarmCommand)
	cfg.AlertCommand = str(getenv, "DROWSY_ALERT_CMD", cfg.AlertCommand)
	cfg.LogLevel = strings.ToLower(str(getenv, "DROWSY_LOG_LEVEL", cfg.LogLevel))
	cfg.LogFile = str(getenv, "DROWSY_LOG_FILE", cfg.LogFile)
	cfg.Driver = str(getenv, "DROWSY_DRIVER", cfg.Driver)
	cfg.Operator = str(getenv, "DROWSY_OPERATOR", cfg.Operator)
	cfg.ReportPath = str(getenv, "DROWSY_REPORT_PATH", cfg.ReportPath)
	if v := getenv("DROWSY_RECORD_SAMPLES"); v != "" {
		cfg.RecordSamples = v == "true" || v == "1"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region validate
var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion validate

// #region helpers
func str(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func integer(getenv func(string) string, key string, fallback int) (int, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func float(getenv func(string) string, key string, fallback float64) (float64, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// #endregion helpers
