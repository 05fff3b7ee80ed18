package config

import (
	"encoding/json"
	"fmt"
	"os"

	"wagate/internal/constants"
	"wagate/internal/models"
)

var (
	ErrMissingStorePath    = models.ConfigError{Message: "missing session store path"}
	ErrMissingSnapshotPath = models.ConfigError{Message: "missing chat snapshot path"}
	ErrMissingDBPath       = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)
	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Session.StorePath == "" {
		return ErrMissingStorePath
	}
	if c.Session.SnapshotPath == "" {
		return ErrMissingSnapshotPath
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Webhook.RetryCount < 0 {
		return models.ConfigError{Message: "webhook retry count must not be negative"}
	}
	if c.Router.BatchConcurrency < 0 {
		return models.ConfigError{Message: "router batch concurrency must not be negative"}
	}
	return nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Port == "" {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultIdleTimeoutSec
	}
	if c.Session.StorePath == "" {
		c.Session.StorePath = constants.DefaultStorePath
	}
	if c.Session.SnapshotPath == "" {
		c.Session.SnapshotPath = constants.DefaultSnapshotPath
	}
	if c.Session.DeviceName == "" {
		c.Session.DeviceName = constants.DefaultDeviceName
	}
	if c.Webhook.TimeoutSec <= 0 {
		c.Webhook.TimeoutSec = constants.DefaultWebhookTimeoutSec
	}
	if c.Webhook.RetryCount == 0 {
		c.Webhook.RetryCount = constants.DefaultWebhookRetryCount
	}
	if c.Router.QueueSize <= 0 {
		c.Router.QueueSize = constants.DefaultEventQueueSize
	}
	if c.Router.BatchConcurrency == 0 {
		c.Router.BatchConcurrency = constants.DefaultBatchConcurrency
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultWebhookInitialWaitMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultWebhookMaxWaitMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultWebhookRetryCount
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if port := os.Getenv("WAGATE_PORT"); port != "" {
		c.Server.Port = port
	}
	if path := os.Getenv("WAGATE_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if path := os.Getenv("WAGATE_STORE_PATH"); path != "" {
		c.Session.StorePath = path
	}
	if path := os.Getenv("WAGATE_SNAPSHOT_PATH"); path != "" {
		c.Session.SnapshotPath = path
	}
	if level := os.Getenv("WAGATE_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}
