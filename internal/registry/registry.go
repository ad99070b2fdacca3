// Package registry holds the set of monitored accounts and resolves inbound
// notifications to the right account handle.
package registry

import (
	"strings"
	"sync"
	"time"

	"github.com/mkasajim/realtime-gmail-monitor/interfaces"
	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
)

// MonitoredAccount bundles one configured account with its provider handle
// and in-memory cursor. The pass lock serializes reconciliation passes (and
// therefore cursor commits) per account; the state lock only guards reads and
// writes of the cursor fields so the status surface can observe them while a
// pass is in flight.
type MonitoredAccount struct {
	Account  *models.Account
	Provider interfaces.MailProvider

	passMu sync.Mutex

	stateMu         sync.RWMutex
	cursor          models.CursorState
	watchExpiration time.Time
}

func NewMonitoredAccount(account *models.Account, provider interfaces.MailProvider, cursor models.CursorState) *MonitoredAccount {
	return &MonitoredAccount{
		Account:  account,
		Provider: provider,
		cursor:   cursor,
	}
}

// LockPass acquires the per-account reconciliation lock. Provider calls for
// this account may happen under it, but never under another account's lock.
func (a *MonitoredAccount) LockPass() {
	a.passMu.Lock()
}

func (a *MonitoredAccount) UnlockPass() {
	a.passMu.Unlock()
}

func (a *MonitoredAccount) Cursor() models.CursorState {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.cursor
}

func (a *MonitoredAccount) SetCursor(cursor models.CursorState) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.cursor = cursor
}

func (a *MonitoredAccount) WatchExpiration() time.Time {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.watchExpiration
}

func (a *MonitoredAccount) SetWatchExpiration(expiration time.Time) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.watchExpiration = expiration
}

func (a *MonitoredAccount) Status() interfaces.AccountStatus {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return interfaces.AccountStatus{
		Name:              a.Account.Name,
		Email:             a.Account.Email,
		LastHistoryId:     a.cursor.LastHistoryId,
		LastSeenMessageId: a.cursor.LastSeenMessageId,
		WatchExpiration:   a.watchExpiration,
	}
}

// Registry maps notification addresses to monitored accounts. Populated once
// at startup; read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	byAddress map[string]*MonitoredAccount
	ordered   []*MonitoredAccount
}

func NewRegistry() *Registry {
	return &Registry{
		byAddress: make(map[string]*MonitoredAccount),
	}
}

func (r *Registry) Add(account *MonitoredAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAddress[normalizeAddress(account.Account.Email)] = account
	r.ordered = append(r.ordered, account)
}

// Resolve finds the account for a notification address. Address matching is
// case-insensitive, as Gmail addresses are.
func (r *Registry) Resolve(address string) (*MonitoredAccount, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byAddress[normalizeAddress(address)]
	return account, ok
}

// All returns accounts in configuration order.
func (r *Registry) All() []*MonitoredAccount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*MonitoredAccount, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
