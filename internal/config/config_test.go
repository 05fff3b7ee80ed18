package config

import (
	"os"
	"path/filepath"
	"testing"

	"wagate/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Minimal(t *testing.T) {
	path := writeConfig(t, `{
		"session": {"storePath": "store.db", "snapshotPath": "data.json"},
		"database": {"path": "registry.db"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "store.db", cfg.Session.StorePath)
	assert.Equal(t, "data.json", cfg.Session.SnapshotPath)
	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultDeviceName, cfg.Session.DeviceName)
	assert.Equal(t, constants.DefaultWebhookTimeoutSec, cfg.Webhook.TimeoutSec)
	assert.Equal(t, constants.DefaultWebhookRetryCount, cfg.Webhook.RetryCount)
	assert.Equal(t, constants.DefaultEventQueueSize, cfg.Router.QueueSize)
	assert.Equal(t, constants.DefaultBatchConcurrency, cfg.Router.BatchConcurrency)
}

func TestLoadConfig_ExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, `{
		"logLevel": "debug",
		"server": {"port": "9090"},
		"session": {"storePath": "store.db", "snapshotPath": "data.json", "deviceName": "gateway-1", "printQr": true},
		"database": {"path": "registry.db"},
		"webhook": {"timeoutSec": 5, "retryCount": 1},
		"router": {"queueSize": 64, "batchConcurrency": 2}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "gateway-1", cfg.Session.DeviceName)
	assert.True(t, cfg.Session.PrintQR)
	assert.Equal(t, 5, cfg.Webhook.TimeoutSec)
	assert.Equal(t, 1, cfg.Webhook.RetryCount)
	assert.Equal(t, 64, cfg.Router.QueueSize)
	assert.Equal(t, 2, cfg.Router.BatchConcurrency)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `{
		"session": {"storePath": "store.db", "snapshotPath": "data.json"}
	}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrMissingDBPath)
}

func TestLoadConfig_NegativeRetryCountRejected(t *testing.T) {
	path := writeConfig(t, `{
		"session": {"storePath": "store.db", "snapshotPath": "data.json"},
		"database": {"path": "registry.db"},
		"webhook": {"retryCount": -1}
	}`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("WAGATE_PORT", "7070")
	t.Setenv("WAGATE_DB_PATH", "/tmp/override.db")
	t.Setenv("WAGATE_LOG_LEVEL", "warn")

	path := writeConfig(t, `{
		"server": {"port": "9090"},
		"session": {"storePath": "store.db", "snapshotPath": "data.json"},
		"database": {"path": "registry.db"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfig_StorePathFromEnvSatisfiesValidation(t *testing.T) {
	t.Setenv("WAGATE_STORE_PATH", "/tmp/store.db")

	path := writeConfig(t, `{
		"session": {"snapshotPath": "data.json"},
		"database": {"path": "registry.db"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/store.db", cfg.Session.StorePath)
}
