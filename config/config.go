package config

import (
	"fmt"
	"time"

	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/tracing"
)

type AppConfig struct {
	StatusPort           string `env:"PORT" envDefault:"12280"`
	BusProvider          string `env:"BUS_PROVIDER" envDefault:"pubsub"`
	RabbitMQURL          string `env:"RABBITMQ_URL"`
	RabbitMQQueue        string `env:"RABBITMQ_QUEUE" envDefault:"gmail-notifications"`
	GCPProjectID         string `env:"GCP_PROJECT_ID"`
	PubSubTopicID        string `env:"PUBSUB_TOPIC_ID" envDefault:"gmail-realtime-feed"`
	PubSubSubscriptionID string `env:"PUBSUB_SUBSCRIPTION_ID" envDefault:"gmail-realtime-subscriber"`
	CredentialsFile      string `env:"GMAIL_CREDENTIALS_FILE" envDefault:"credentials.json"`
	AccountsFile         string `env:"ACCOUNTS_FILE" envDefault:"accounts.yaml"`
	WatchRenewalSchedule string `env:"CRON_SCHEDULE_WATCH_RENEWAL" envDefault:"0 0 */12 * * *"`
}

// TopicName returns the fully qualified Pub/Sub topic Gmail watches publish to.
func (c *AppConfig) TopicName() string {
	return fmt.Sprintf("projects/%s/topics/%s", c.GCPProjectID, c.PubSubTopicID)
}

// ReconcilerConfig carries the tuning constants of the reconciliation engine.
// The defaults match the provider quirks the system was tuned against; they
// are knobs, not invariants.
type ReconcilerConfig struct {
	// BaselineBackoff is how far behind the current history id a first-run
	// baseline is placed, to avoid missing items at the cost of re-scanning
	// recently seen ones.
	BaselineBackoff uint64 `env:"RECONCILER_BASELINE_BACKOFF" envDefault:"100"`

	HistoryPageSize  int64 `env:"RECONCILER_HISTORY_PAGE_SIZE" envDefault:"100"`
	SnapshotPageSize int64 `env:"RECONCILER_SNAPSHOT_PAGE_SIZE" envDefault:"10"`

	// BurstWindow is the inter-notification gap under which a delivery is
	// flagged as a bursty echo in diagnostics. Informational only.
	BurstWindow time.Duration `env:"RECONCILER_BURST_WINDOW" envDefault:"2s"`
}

type DisplayConfig struct {
	CacheCeiling int `env:"DEDUP_CACHE_CEILING" envDefault:"100"`
	CacheFloor   int `env:"DEDUP_CACHE_FLOOR" envDefault:"50"`
}

type Config struct {
	AppConfig  *AppConfig
	Reconciler *ReconcilerConfig
	Display    *DisplayConfig
	Logger     *logger.Config
	Tracing    *tracing.JaegerConfig
}
