package interfaces

import (
	"context"
	"time"

	"github.com/mkasajim/realtime-gmail-monitor/dto"
)

type Reconciler interface {
	// Reconcile runs one reconciliation pass for an inbound notification.
	// It never fails the caller: all errors are contained and logged so the
	// notification can be acknowledged unconditionally.
	Reconcile(ctx context.Context, notification dto.Notification)
}

// AccountStatus is the operator-facing snapshot of one monitored account.
type AccountStatus struct {
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	LastHistoryId     string    `json:"lastHistoryId"`
	LastSeenMessageId string    `json:"lastSeenMessageId"`
	WatchExpiration   time.Time `json:"watchExpiration"`
}
