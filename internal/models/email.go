package models

import "time"

// Email is one fetched message. Immutable once fetched; held only for the
// duration of a single reconciliation pass.
type Email struct {
	ID         string
	Subject    string
	From       string
	To         string
	DateHeader string
	Snippet    string
	ReceivedAt time.Time
}
