package factory

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/opd-ai/zplprint/interfaces"
	"github.com/opd-ai/zplprint/real"
	simulation "github.com/opd-ai/zplprint/testing"
	"github.com/sirupsen/logrus"
)

// Validation constants for configuration bounds checking.
const (
	// MinTimeout is the minimum allowed timeout in milliseconds.
	MinTimeout = 100
	// MaxTimeout is the maximum allowed timeout in milliseconds (10 minutes).
	MaxTimeout = 600000
)

// Environment variables read by NewDispatcherFactory.
const (
	EnvUseSimulation  = "ZPL_USE_SIMULATION"
	EnvConnectTimeout = "ZPL_CONNECT_TIMEOUT"
	EnvWriteTimeout   = "ZPL_WRITE_TIMEOUT"
)

// DispatcherFactory creates print dispatcher implementations based on configuration.
// It is safe for concurrent use; all methods are protected by an internal mutex.
type DispatcherFactory struct {
	mu            sync.RWMutex
	defaultConfig *interfaces.DispatchConfig
	logger        logrus.FieldLogger
}

// TestConfigOption is a functional option for customizing test simulation configuration.
type TestConfigOption func(*interfaces.DispatchConfig)

// NewDispatcherFactory creates a new factory with default configuration and
// environment overrides applied. A nil logger selects the logrus standard logger.
func NewDispatcherFactory(logger logrus.FieldLogger) *DispatcherFactory {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	defaultConfig := interfaces.DefaultDispatchConfig()
	applyEnvironmentOverrides(defaultConfig, logger)
	logConfigurationInfo(defaultConfig, logger)

	return &DispatcherFactory{
		defaultConfig: defaultConfig,
		logger:        logger,
	}
}

// applyEnvironmentOverrides updates configuration based on ZPL_* environment variables.
func applyEnvironmentOverrides(config *interfaces.DispatchConfig, logger logrus.FieldLogger) {
	parseSimulationSetting(config, logger)
	parseTimeoutSetting(EnvConnectTimeout, &config.ConnectTimeout, logger)
	parseTimeoutSetting(EnvWriteTimeout, &config.WriteTimeout, logger)
}

// parseSimulationSetting updates UseSimulation from ZPL_USE_SIMULATION.
// It logs a warning and keeps the current value if parsing fails.
func parseSimulationSetting(config *interfaces.DispatchConfig, logger logrus.FieldLogger) {
	useSimStr := os.Getenv(EnvUseSimulation)
	if useSimStr == "" {
		return
	}
	useSim, err := strconv.ParseBool(useSimStr)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"function":    "parseSimulationSetting",
			"env_var":     EnvUseSimulation,
			"value":       useSimStr,
			"error":       err.Error(),
			"using_value": config.UseSimulation,
		}).Warn("Failed to parse ZPL_USE_SIMULATION environment variable, using default")
		return
	}
	config.UseSimulation = useSim
}

// parseTimeoutSetting updates *target from envVar. The value must be an
// integer within [MinTimeout, MaxTimeout]; anything else is logged and ignored.
func parseTimeoutSetting(envVar string, target *int, logger logrus.FieldLogger) {
	timeoutStr := os.Getenv(envVar)
	if timeoutStr == "" {
		return
	}
	timeout, err := strconv.Atoi(timeoutStr)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"function":    "parseTimeoutSetting",
			"env_var":     envVar,
			"value":       timeoutStr,
			"error":       err.Error(),
			"using_value": *target,
		}).Warn("Failed to parse timeout environment variable, using default")
		return
	}
	if timeout < MinTimeout || timeout > MaxTimeout {
		logger.WithFields(logrus.Fields{
			"function":    "parseTimeoutSetting",
			"env_var":     envVar,
			"value":       timeout,
			"min":         MinTimeout,
			"max":         MaxTimeout,
			"using_value": *target,
		}).Warn("Timeout environment variable out of bounds, using default")
		return
	}
	*target = timeout
}

// logConfigurationInfo logs the final configuration settings for debugging purposes.
func logConfigurationInfo(config *interfaces.DispatchConfig, logger logrus.FieldLogger) {
	logger.WithFields(logrus.Fields{
		"function":        "NewDispatcherFactory",
		"use_simulation":  config.UseSimulation,
		"connect_timeout": config.ConnectTimeout,
		"write_timeout":   config.WriteTimeout,
	}).Info("Created print dispatcher factory with configuration")
}

// CreateDispatcher creates a dispatcher from the factory's default configuration.
func (f *DispatcherFactory) CreateDispatcher() (interfaces.IPrintDispatcher, error) {
	return f.CreateDispatcherWithConfig(f.GetCurrentConfig())
}

// CreateDispatcherWithConfig creates a dispatcher with custom configuration.
// A nil config selects the factory default.
func (f *DispatcherFactory) CreateDispatcherWithConfig(config *interfaces.DispatchConfig) (interfaces.IPrintDispatcher, error) {
	if config == nil {
		config = f.GetCurrentConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatch config: %w", err)
	}

	if config.UseSimulation {
		f.logger.WithFields(logrus.Fields{
			"function": "CreateDispatcherWithConfig",
			"type":     "simulation",
		}).Info("Creating simulation print dispatcher")

		return simulation.NewSimulatedPrintDispatcher(config), nil
	}

	f.logger.WithFields(logrus.Fields{
		"function": "CreateDispatcherWithConfig",
		"type":     "real",
	}).Info("Creating real print dispatcher")

	return real.NewPrintDispatcher(config, f.logger), nil
}

// WithConnectTimeout sets a custom connect timeout for the test configuration.
func WithConnectTimeout(timeout int) TestConfigOption {
	return func(c *interfaces.DispatchConfig) {
		c.ConnectTimeout = timeout
	}
}

// WithWriteTimeout sets a custom write timeout for the test configuration.
func WithWriteTimeout(timeout int) TestConfigOption {
	return func(c *interfaces.DispatchConfig) {
		c.WriteTimeout = timeout
	}
}

// CreateSimulationForTesting creates a simulation implementation specifically for testing.
// Default test configuration uses ConnectTimeout=1000ms and WriteTimeout=1000ms.
func (f *DispatcherFactory) CreateSimulationForTesting(opts ...TestConfigOption) *simulation.SimulatedPrintDispatcher {
	testConfig := &interfaces.DispatchConfig{
		UseSimulation:  true,
		ConnectTimeout: 1000,
		WriteTimeout:   1000,
	}
	for _, opt := range opts {
		opt(testConfig)
	}

	f.logger.WithFields(logrus.Fields{
		"function":        "CreateSimulationForTesting",
		"connect_timeout": testConfig.ConnectTimeout,
		"write_timeout":   testConfig.WriteTimeout,
	}).Info("Creating simulation implementation for testing")

	return simulation.NewSimulatedPrintDispatcher(testConfig)
}

// SwitchToSimulation switches the configuration to use simulation
func (f *DispatcherFactory) SwitchToSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultConfig.UseSimulation = true
}

// SwitchToReal switches the configuration to use real transports
func (f *DispatcherFactory) SwitchToReal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultConfig.UseSimulation = false
}

// GetCurrentConfig returns a copy of the current default configuration
func (f *DispatcherFactory) GetCurrentConfig() *interfaces.DispatchConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	config := *f.defaultConfig
	return &config
}

// IsUsingSimulation returns true if the factory is configured for simulation
func (f *DispatcherFactory) IsUsingSimulation() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.defaultConfig.UseSimulation
}

// UpdateConfig validates and replaces the factory's default configuration
func (f *DispatcherFactory) UpdateConfig(config *interfaces.DispatchConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid dispatch config: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger.WithFields(logrus.Fields{
		"function":        "UpdateConfig",
		"old_simulation":  f.defaultConfig.UseSimulation,
		"new_simulation":  config.UseSimulation,
		"connect_timeout": config.ConnectTimeout,
		"write_timeout":   config.WriteTimeout,
	}).Info("Updating factory configuration")

	updated := *config
	f.defaultConfig = &updated
	return nil
}
