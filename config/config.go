// Package config loads the print daemon settings from ZPL_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Environment variable names.
const (
	EnvHTTPAddr           = "ZPL_HTTP_ADDR"
	EnvGRPCAddr           = "ZPL_GRPC_ADDR"
	EnvDefaultPrinterIP   = "ZPL_DEFAULT_PRINTER_IP"
	EnvDefaultPrinterPort = "ZPL_DEFAULT_PRINTER_PORT"
	EnvSendTimeout        = "ZPL_SEND_TIMEOUT"
	EnvShutdownTimeout    = "ZPL_SHUTDOWN_TIMEOUT"
	EnvLogLevel           = "ZPL_LOG_LEVEL"
	EnvLogJSON            = "ZPL_LOG_JSON"
	EnvLogFile            = "ZPL_LOG_FILE"
	EnvLogMaxSizeMB       = "ZPL_LOG_MAX_SIZE_MB"
	EnvLogMaxBackups      = "ZPL_LOG_MAX_BACKUPS"
	EnvLogMaxAgeDays      = "ZPL_LOG_MAX_AGE_DAYS"
)

// Config holds the daemon settings. Dispatcher timeouts and simulation mode
// are read separately by the factory package.
type Config struct {
	HTTPAddr           string
	GRPCAddr           string
	DefaultPrinterIP   string
	DefaultPrinterPort int
	SendTimeout        time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           string
	LogJSON            bool

	// LogFile, when set, sends logs to a size-rotated file instead of stderr.
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Default returns the settings used when no variable is set.
func Default() Config {
	return Config{
		HTTPAddr:           ":8080",
		GRPCAddr:           ":9090",
		DefaultPrinterIP:   "192.168.1.100",
		DefaultPrinterPort: 9100,
		SendTimeout:        30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		LogLevel:           "info",
		LogJSON:            false,
		LogMaxSizeMB:       10,
		LogMaxBackups:      3,
		LogMaxAgeDays:      7,
	}
}

// Load reads the environment over Default and validates the result. An
// unparsable value keeps the default and is reported as a warning on logger.
// A nil logger selects the logrus standard logger.
func Load(logger logrus.FieldLogger) (Config, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := envReader{logger: logger}
	d := Default()
	cfg := Config{
		HTTPAddr:           env(EnvHTTPAddr, d.HTTPAddr),
		GRPCAddr:           envAllowEmpty(EnvGRPCAddr, d.GRPCAddr),
		DefaultPrinterIP:   env(EnvDefaultPrinterIP, d.DefaultPrinterIP),
		DefaultPrinterPort: r.envInt(EnvDefaultPrinterPort, d.DefaultPrinterPort),
		SendTimeout:        r.envDuration(EnvSendTimeout, d.SendTimeout),
		ShutdownTimeout:    r.envDuration(EnvShutdownTimeout, d.ShutdownTimeout),
		LogLevel:           strings.ToLower(env(EnvLogLevel, d.LogLevel)),
		LogJSON:            r.envBool(EnvLogJSON, d.LogJSON),
		LogFile:            env(EnvLogFile, d.LogFile),
		LogMaxSizeMB:       r.envInt(EnvLogMaxSizeMB, d.LogMaxSizeMB),
		LogMaxBackups:      r.envInt(EnvLogMaxBackups, d.LogMaxBackups),
		LogMaxAgeDays:      r.envInt(EnvLogMaxAgeDays, d.LogMaxAgeDays),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the daemon cannot start with. An empty GRPCAddr
// is valid and disables the gRPC listener.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New(EnvHTTPAddr + " is required")
	}
	if c.DefaultPrinterPort < 1 || c.DefaultPrinterPort > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", EnvDefaultPrinterPort, c.DefaultPrinterPort)
	}
	if c.SendTimeout <= 0 {
		return errors.New(EnvSendTimeout + " must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New(EnvShutdownTimeout + " must be > 0")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	if c.LogFile != "" && (c.LogMaxSizeMB <= 0 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0) {
		return errors.New("log rotation limits must be positive")
	}
	return nil
}

// GRPCEnabled reports whether the gRPC listener should start.
func (c Config) GRPCEnabled() bool {
	return strings.TrimSpace(c.GRPCAddr) != ""
}

// NewLogger builds a logrus logger with the configured level and format.
// The returned closer releases the log file and must be called on exit.
func (c Config) NewLogger() (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := logrus.New()
	logger.SetLevel(level)
	if c.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if c.LogFile == "" {
		logger.SetOutput(os.Stderr)
		return logger, nopCloser{}, nil
	}
	rotator := &lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAgeDays,
	}
	logger.SetOutput(rotator)
	return logger, rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// envAllowEmpty distinguishes an unset variable from one set to "".
func envAllowEmpty(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return strings.TrimSpace(v)
}

// envReader parses typed ZPL_* values, warning when a value is rejected.
type envReader struct {
	logger logrus.FieldLogger
}

func (r envReader) warnUnparsable(key, value string, err error, using any) {
	r.logger.WithFields(logrus.Fields{
		"function":    "config.Load",
		"env_var":     key,
		"value":       value,
		"error":       err.Error(),
		"using_value": using,
	}).Warn("Failed to parse environment variable, using default")
}

func (r envReader) envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.warnUnparsable(key, v, err, fallback)
		return fallback
	}
	return i
}

func (r envReader) envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		r.warnUnparsable(key, v, fmt.Errorf("invalid boolean %q", v), fallback)
		return fallback
	}
}

func (r envReader) envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.warnUnparsable(key, v, err, fallback.String())
		return fallback
	}
	return d
}
