package interfaces

import (
	"context"
	"time"

	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
)

// MailProvider is the narrow upstream surface the reconciler needs for one
// account. History ids are carried as opaque strings; only the provider
// implementation interprets them numerically.
type MailProvider interface {
	// ListHistory returns ids of messages added between startHistoryId and
	// the present, bounded to max results.
	ListHistory(ctx context.Context, startHistoryId string, max int64) ([]string, error)

	// ListRecent returns up to max message ids from the primary inbox view,
	// ordered most-recent-first.
	ListRecent(ctx context.Context, max int64) ([]string, error)

	// GetMessage fetches full message content. Returns ErrMessageNotFound
	// when the id cannot be retrieved.
	GetMessage(ctx context.Context, id string) (*models.Email, error)

	// CurrentHistoryId returns the provider's present history id for the
	// account.
	CurrentHistoryId(ctx context.Context) (string, error)

	// Watch registers (or renews) push notifications to the named topic and
	// returns the watch expiration.
	Watch(ctx context.Context, topicName string) (time.Time, error)
}
