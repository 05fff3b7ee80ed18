package constants

const (
	// Server defaults
	DefaultServerPort          = "8080"
	DefaultReadTimeoutSec      = 15
	DefaultWriteTimeoutSec     = 15
	DefaultIdleTimeoutSec      = 60
	DefaultGracefulShutdownSec = 30

	// Webhook delivery defaults
	DefaultWebhookTimeoutSec    = 10
	DefaultWebhookRetryCount    = 3
	DefaultWebhookInitialWaitMs = 200
	DefaultWebhookMaxWaitMs     = 2000

	// Event routing defaults
	DefaultEventQueueSize          = 256
	DefaultBatchConcurrency        = 4
	DefaultMediaDownloadTimeoutSec = 30

	// Database defaults
	DefaultDatabaseRetryAttempts = 5

	// Session defaults
	DefaultStorePath        = "wagate.db"
	DefaultSnapshotPath     = "wagate_data.json"
	DefaultDeviceName       = "wagate"
	AlreadyConnectedDelayMs = 1500

	// Snapshot encryption
	EncryptionSecretEnv = "WAGATE_ENCRYPTION_SECRET"
	EncryptionSalt      = "wagate-snapshot-salt-v1"
	PBKDF2Iterations    = 100000
	EncryptionKeySize   = 32
	EncryptionNonceSize = 12

	ServerErrorChannelSize = 1
)
