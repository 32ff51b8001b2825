package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/scribe/internal/providers"
)

// StoreDisabled turns off call recording when used as store.path.
const StoreDisabled = "disabled"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// If cfgFile is empty, config.yaml is searched in "." and searchDir.
func NewManager(cfgFile, searchDir string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.initViper(cfgFile, searchDir); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// SetLogger sets the logger used for reload messages.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// initViper sets up viper with defaults, environment, and config file.
func (cm *Manager) initViper(cfgFile, searchDir string) error {
	v := cm.v
	setDefaults(v, DefaultConfig())

	// Environment variables with SCRIBE_ prefix: SCRIBE_ANTHROPIC_MODEL
	v.SetEnvPrefix("SCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if searchDir != "" {
			v.AddConfigPath(searchDir)
		}
	}

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults registers every leaf key so environment overrides apply even
// when the key is absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("anthropic.api_key", d.Anthropic.APIKey)
	v.SetDefault("anthropic.base_url", d.Anthropic.BaseURL)
	v.SetDefault("anthropic.model", d.Anthropic.Model)
	v.SetDefault("anthropic.max_tokens", d.Anthropic.MaxTokens)
	v.SetDefault("anthropic.version", d.Anthropic.Version)
	v.SetDefault("anthropic.beta", d.Anthropic.Beta)
	v.SetDefault("anthropic.timeout_seconds", d.Anthropic.TimeoutSeconds)

	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.delay", d.Retry.Delay)
	v.SetDefault("retry.retry_statuses", d.Retry.RetryStatuses)

	v.SetDefault("extraction.strict_validation", d.Extraction.StrictValidation)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)

	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("telemetry.log_level", d.Telemetry.LogLevel)
	v.SetDefault("telemetry.trace_stdout", d.Telemetry.TraceStdout)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.otlp_insecure", d.Telemetry.OTLPInsecure)
}

// load parses the current viper state into a validated Config.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func (cm *Manager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. An invalid file is
// logged and ignored; the previous config stays active.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cm.reload(e.Name)
	})
	cm.v.WatchConfig()
}

func (cm *Manager) reload(source string) {
	cfg, err := cm.load()
	if err != nil {
		cm.mu.RLock()
		logger := cm.logger
		cm.mu.RUnlock()
		logger.Warn("ignoring invalid config change", "file", source, "error", err)
		return
	}

	cm.mu.Lock()
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	logger := cm.logger
	cm.mu.Unlock()

	logger.Info("config reloaded", "file", source)
	for _, fn := range callbacks {
		fn(cfg)
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// Validate checks values that cannot be caught by type decoding.
func (c *Config) Validate() error {
	if _, err := c.RetryDelay(); err != nil {
		return err
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", c.Retry.MaxRetries)
	}
	for _, s := range c.Retry.RetryStatuses {
		if s < 100 || s > 599 {
			return fmt.Errorf("retry.retry_statuses: invalid HTTP status %d", s)
		}
	}
	if c.Anthropic.MaxTokens < 0 {
		return fmt.Errorf("anthropic.max_tokens must be >= 0, got %d", c.Anthropic.MaxTokens)
	}
	if _, err := parseLevel(c.Telemetry.LogLevel); err != nil {
		return err
	}
	return nil
}

// RetryDelay parses retry.delay.
func (c *Config) RetryDelay() (time.Duration, error) {
	if c.Retry.Delay == "" {
		return providers.DefaultRetryDelay, nil
	}
	d, err := time.ParseDuration(c.Retry.Delay)
	if err != nil {
		return 0, fmt.Errorf("retry.delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("retry.delay must not be negative, got %s", d)
	}
	return d, nil
}

// RetryPolicy converts the retry section to a fixed-delay policy.
func (c *Config) RetryPolicy() providers.RetryPolicy {
	delay, err := c.RetryDelay()
	if err != nil {
		delay = providers.DefaultRetryDelay
	}
	return providers.RetryPolicy{
		MaxRetries:    c.Retry.MaxRetries,
		Delay:         delay,
		DelayType:     retry.FixedDelay,
		RetryStatuses: append([]int(nil), c.Retry.RetryStatuses...),
	}
}

// ToAnthropicConfig converts the config to client settings, resolving
// ${ENV_VAR} references in the API key. Logger, observer, and HTTP client
// are left for the caller.
func (c *Config) ToAnthropicConfig() providers.AnthropicConfig {
	return providers.AnthropicConfig{
		APIKey:           ResolveEnvVars(c.Anthropic.APIKey),
		BaseURL:          c.Anthropic.BaseURL,
		Model:            c.Anthropic.Model,
		MaxTokens:        c.Anthropic.MaxTokens,
		Version:          c.Anthropic.Version,
		Beta:             c.Anthropic.Beta,
		Timeout:          time.Duration(c.Anthropic.TimeoutSeconds) * time.Second,
		Retry:            c.RetryPolicy(),
		StrictValidation: c.Extraction.StrictValidation,
	}
}

// LogLevel returns the configured slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Telemetry.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// StoreEnabled reports whether call recording is on.
func (c *Config) StoreEnabled() bool {
	return c.Store.Path != StoreDisabled
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("telemetry.log_level: %w", err)
	}
	return level, nil
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Scribe configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set the key in your shell: export ANTHROPIC_API_KEY=xxx
# Any key can be overridden with SCRIBE_<SECTION>_<KEY>, e.g. SCRIBE_SERVER_PORT=9090

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
