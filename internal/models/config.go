package models

// ConfigError represents a configuration validation error
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

type Config struct {
	LogLevel string         `json:"logLevel,omitempty"`
	Server   ServerConfig   `json:"server"`
	Session  SessionConfig  `json:"session"`
	Database DatabaseConfig `json:"database"`
	Webhook  WebhookConfig  `json:"webhook"`
	Router   RouterConfig   `json:"router,omitempty"`
	Tracing  TracingConfig  `json:"tracing,omitempty"`
	Retry    RetryConfig    `json:"retry,omitempty"`
}

type ServerConfig struct {
	Port            string `json:"port,omitempty"`
	ReadTimeoutSec  int    `json:"readTimeoutSec,omitempty"`
	WriteTimeoutSec int    `json:"writeTimeoutSec,omitempty"`
	IdleTimeoutSec  int    `json:"idleTimeoutSec,omitempty"`
}

type SessionConfig struct {
	// StorePath is the SQLite file holding the provider credential store.
	StorePath string `json:"storePath"`
	// SnapshotPath is the JSON file holding merged chats/contacts.
	SnapshotPath string `json:"snapshotPath"`
	DeviceName   string `json:"deviceName,omitempty"`
	// PrintQR renders pairing codes to the terminal as they arrive.
	PrintQR bool `json:"printQr,omitempty"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type WebhookConfig struct {
	TimeoutSec int `json:"timeoutSec,omitempty"`
	RetryCount int `json:"retryCount,omitempty"`
}

type RouterConfig struct {
	QueueSize        int `json:"queueSize,omitempty"`
	BatchConcurrency int `json:"batchConcurrency,omitempty"`
}

type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName,omitempty"`
	ServiceVersion string  `json:"serviceVersion,omitempty"`
	Environment    string  `json:"environment,omitempty"`
	OTLPEndpoint   string  `json:"otlpEndpoint,omitempty"`
	SampleRate     float64 `json:"sampleRate,omitempty"`
	UseStdout      bool    `json:"useStdout,omitempty"`
}

type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs,omitempty"`
	MaxBackoffMs     int `json:"maxBackoffMs,omitempty"`
	MaxAttempts      int `json:"maxAttempts,omitempty"`
}
