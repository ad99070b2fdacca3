package interfaces

import "github.com/mkasajim/realtime-gmail-monitor/internal/models"

// DisplayGate decides whether a fetched message is surfaced to the operator.
// It is the only dedup point between reconciliation and display: an id is
// displayed at most once per process lifetime while it remains cached.
type DisplayGate interface {
	// TryDisplay renders the message unless its id was already displayed.
	// Returns true when the message was rendered.
	TryDisplay(email *models.Email, accountLabel string) bool

	// CachedIds returns the current dedup cache occupancy.
	CachedIds() int
}
