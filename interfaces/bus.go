package interfaces

import (
	"context"

	"github.com/mkasajim/realtime-gmail-monitor/dto"
)

// NotificationHandler processes one decoded notification. The bus
// acknowledges the underlying message after the handler returns, regardless
// of outcome.
type NotificationHandler func(ctx context.Context, notification dto.Notification)

type NotificationBus interface {
	// Listen blocks delivering notifications to handler until ctx is
	// cancelled or the bus fails terminally.
	Listen(ctx context.Context, handler NotificationHandler) error

	// Check verifies the bus is reachable before subscribing.
	Check(ctx context.Context) error

	Close() error
}
