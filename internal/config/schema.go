package config

// Config holds scribe configuration.
// Stored at: ./config.yaml or ~/.scribe/config.yaml
type Config struct {
	Anthropic  AnthropicCfg  `mapstructure:"anthropic" yaml:"anthropic"`
	Retry      RetryCfg      `mapstructure:"retry" yaml:"retry"`
	Extraction ExtractionCfg `mapstructure:"extraction" yaml:"extraction"`
	Server     ServerCfg     `mapstructure:"server" yaml:"server"`
	Store      StoreCfg      `mapstructure:"store" yaml:"store"`
	Telemetry  TelemetryCfg  `mapstructure:"telemetry" yaml:"telemetry"`
}

// AnthropicCfg configures the Messages API client.
type AnthropicCfg struct {
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`   // Supports ${ENV_VAR} syntax
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Model          string `mapstructure:"model" yaml:"model"`
	MaxTokens      int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	Version        string `mapstructure:"version" yaml:"version"` // anthropic-version header
	Beta           string `mapstructure:"beta" yaml:"beta"`       // anthropic-beta header
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// RetryCfg configures retries of overloaded responses.
type RetryCfg struct {
	MaxRetries    int    `mapstructure:"max_retries" yaml:"max_retries"`
	Delay         string `mapstructure:"delay" yaml:"delay"` // Go duration, e.g. "10s"
	RetryStatuses []int  `mapstructure:"retry_statuses" yaml:"retry_statuses"`
}

// ExtractionCfg controls result validation.
type ExtractionCfg struct {
	// StrictValidation enables full JSON Schema checks of nested items.
	StrictValidation bool `mapstructure:"strict_validation" yaml:"strict_validation"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// StoreCfg configures the call history database.
type StoreCfg struct {
	// Path is the sqlite file. Relative paths resolve under the home data dir.
	// Set to "disabled" to turn off call recording.
	Path string `mapstructure:"path" yaml:"path"`
}

// TelemetryCfg configures logging and tracing.
type TelemetryCfg struct {
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"` // debug, info, warn, error
	TraceStdout  bool   `mapstructure:"trace_stdout" yaml:"trace_stdout"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"` // host:port of an OTLP gRPC collector
	OTLPInsecure bool   `mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Anthropic: AnthropicCfg{
			APIKey:         "${ANTHROPIC_API_KEY}",
			BaseURL:        "https://api.anthropic.com",
			Model:          "claude-3-5-haiku-20241022",
			MaxTokens:      1500,
			Version:        "2023-06-01",
			Beta:           "token-efficient-tools-2025-02-19",
			TimeoutSeconds: 120,
		},
		Retry: RetryCfg{
			MaxRetries:    2,
			Delay:         "10s",
			RetryStatuses: []int{529},
		},
		Extraction: ExtractionCfg{
			StrictValidation: false,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Store: StoreCfg{
			Path: "llmcalls.db",
		},
		Telemetry: TelemetryCfg{
			LogLevel:    "info",
			TraceStdout: false,
		},
	}
}
