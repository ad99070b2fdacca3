package interfaces

import (
	"context"

	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
)

type CursorRepository interface {
	// Load reads the persisted cursor for an account. A missing or malformed
	// record yields the zero CursorState, not an error.
	Load(ctx context.Context, account *models.Account) (models.CursorState, error)

	// Commit atomically replaces the persisted cursor record.
	Commit(ctx context.Context, account *models.Account, state models.CursorState) error
}
