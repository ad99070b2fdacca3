// Package reconciler turns inbound change notifications into displayed
// messages and durable cursor advances, one pass per notification.
package reconciler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"

	"github.com/mkasajim/realtime-gmail-monitor/config"
	"github.com/mkasajim/realtime-gmail-monitor/dto"
	"github.com/mkasajim/realtime-gmail-monitor/interfaces"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
	"github.com/mkasajim/realtime-gmail-monitor/internal/registry"
	"github.com/mkasajim/realtime-gmail-monitor/internal/tracing"
)

type Service struct {
	registry *registry.Registry
	cursors  interfaces.CursorRepository
	gate     interfaces.DisplayGate
	cfg      *config.ReconcilerConfig
	log      logger.Logger

	// rate observation across all accounts, diagnostic only
	rateMu           sync.Mutex
	lastNotification time.Time
}

func NewService(
	accountRegistry *registry.Registry,
	cursors interfaces.CursorRepository,
	gate interfaces.DisplayGate,
	cfg *config.ReconcilerConfig,
	log logger.Logger,
) *Service {
	return &Service{
		registry: accountRegistry,
		cursors:  cursors,
		gate:     gate,
		cfg:      cfg,
		log:      log,
	}
}

// Reconcile runs one reconciliation pass. It never returns an error: every
// failure is contained here so the listener can acknowledge the notification
// unconditionally. Concurrent passes for the same account are serialized by
// the account's pass lock; passes for different accounts run independently.
func (s *Service) Reconcile(ctx context.Context, notification dto.Notification) {
	processingId := uuid.New().String()

	span, ctx := tracing.StartTracerSpan(ctx, "ReconcilerService.Reconcile")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagProcessingId, processingId)
	tracing.LogObjectAsJson(span, "notification", notification)

	account, ok := s.registry.Resolve(notification.EmailAddress)
	if !ok {
		span.SetTag("account.resolved", false)
		s.log.Warnf("No account configured for %s [%s]", notification.EmailAddress, processingId)
		return
	}
	tracing.TagAccount(span, account.Account.Name, account.Account.Email)

	s.observeRate(account, notification, processingId)

	account.LockPass()
	defer account.UnlockPass()

	found := s.historyScan(ctx, account, processingId)
	span.SetTag("history.found", found)

	committed := false
	if found == 0 {
		committed = s.snapshotFallback(ctx, account, notification, processingId)
	}

	if !committed {
		state := account.Cursor()
		state.LastHistoryId = notification.HistoryId
		s.commit(ctx, account, state, processingId)
	}
}

// observeRate records the wall-clock gap since the previous notification
// across any account. It distinguishes bursty echoes from genuinely distinct
// notifications in diagnostics and never delays processing.
func (s *Service) observeRate(account *registry.MonitoredAccount, notification dto.Notification, processingId string) {
	s.rateMu.Lock()
	now := time.Now()
	previous := s.lastNotification
	s.lastNotification = now
	s.rateMu.Unlock()

	if !previous.IsZero() && now.Sub(previous) < s.cfg.BurstWindow {
		s.log.Debugf("Notification for %s (%s), history id %s, %s after the previous one [%s]",
			notification.EmailAddress, account.Account.Name, notification.HistoryId, now.Sub(previous).Round(time.Millisecond), processingId)
		return
	}
	s.log.Debugf("Received notification for %s (%s), history id %s [%s]",
		notification.EmailAddress, account.Account.Name, notification.HistoryId, processingId)
}

// historyScan is the authoritative incremental path: list "message added"
// events since the starting marker, fetch and display each. Returns how many
// messages were actually displayed. Provider failures count as zero results.
func (s *Service) historyScan(ctx context.Context, account *registry.MonitoredAccount, processingId string) int {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReconcilerService.historyScan")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	startHistoryId := s.startingMarker(ctx, account, processingId)
	if startHistoryId == "" {
		return 0
	}
	span.SetTag("history.start", startHistoryId)

	ids, err := account.Provider.ListHistory(ctx, startHistoryId, s.cfg.HistoryPageSize)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("History scan failed for %s: %v [%s]", account.Account.Name, err, processingId)
		return 0
	}

	found := 0
	for _, id := range ids {
		email, err := account.Provider.GetMessage(ctx, id)
		if err != nil {
			// non-fatal: the item could not be retrieved, the pass goes on
			s.log.Warnf("Could not retrieve message %s for %s: %v [%s]", id, account.Account.Name, err, processingId)
			continue
		}
		if s.gate.TryDisplay(email, account.Account.Name) {
			found++
		}
	}
	return found
}

// startingMarker picks where the history scan begins: the persisted marker
// when one exists, otherwise the provider's current marker backed off by a
// fixed offset. The synthetic start is deliberately behind the true state;
// re-scanning is idempotent because of the display gate.
func (s *Service) startingMarker(ctx context.Context, account *registry.MonitoredAccount, processingId string) string {
	if historyId := account.Cursor().LastHistoryId; historyId != "" {
		return historyId
	}

	current, err := account.Provider.CurrentHistoryId(ctx)
	if err != nil {
		s.log.Errorf("Could not determine current history id for %s: %v [%s]", account.Account.Name, err, processingId)
		return ""
	}

	baseline := markerMinus(current, s.cfg.BaselineBackoff)
	s.log.Debugf("No stored history id for %s, using baseline %s [%s]", account.Account.Name, baseline, processingId)
	return baseline
}

// snapshotFallback compensates for the provider's history log occasionally
// omitting very recent events: compare the single most recent inbox id with
// the last one seen. Best-effort by design; never the primary path. Returns
// true when it already committed the cursor.
func (s *Service) snapshotFallback(ctx context.Context, account *registry.MonitoredAccount, notification dto.Notification, processingId string) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReconcilerService.snapshotFallback")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	ids, err := account.Provider.ListRecent(ctx, s.cfg.SnapshotPageSize)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Recent messages check failed for %s: %v [%s]", account.Account.Name, err, processingId)
		return false
	}
	if len(ids) == 0 {
		return false
	}

	mostRecent := ids[0]
	cursor := account.Cursor()

	switch {
	case cursor.LastSeenMessageId == "":
		// first observation: record the baseline without displaying anything,
		// so startup does not flood the operator with the existing inbox
		s.log.Debugf("First run for %s, storing latest message id %s [%s]", account.Account.Name, mostRecent, processingId)
		s.commit(ctx, account, models.CursorState{
			LastHistoryId:     notification.HistoryId,
			LastSeenMessageId: mostRecent,
		}, processingId)
		return true

	case mostRecent != cursor.LastSeenMessageId:
		s.log.Debugf("New message detected for %s: previous %s, current %s [%s]",
			account.Account.Name, cursor.LastSeenMessageId, mostRecent, processingId)
		email, err := account.Provider.GetMessage(ctx, mostRecent)
		if err != nil {
			s.log.Warnf("Could not retrieve message %s for %s: %v [%s]", mostRecent, account.Account.Name, err, processingId)
			return false
		}
		if !s.gate.TryDisplay(email, account.Account.Name) {
			return false
		}
		s.commit(ctx, account, models.CursorState{
			LastHistoryId:     notification.HistoryId,
			LastSeenMessageId: mostRecent,
		}, processingId)
		return true

	default:
		s.log.Debugf("No new messages for %s, latest is still %s [%s]", account.Account.Name, mostRecent, processingId)
		return false
	}
}

// commit advances the in-memory cursor and persists it synchronously. The
// in-memory pass is never rolled back on a persistence failure; the worst
// case is a duplicate re-scan after restart, which the display gate absorbs.
// The persisted marker never moves backward.
func (s *Service) commit(ctx context.Context, account *registry.MonitoredAccount, state models.CursorState, processingId string) {
	previous := account.Cursor()
	if state.LastHistoryId == "" || markerLess(state.LastHistoryId, previous.LastHistoryId) {
		state.LastHistoryId = previous.LastHistoryId
	}

	account.SetCursor(state)

	if err := s.cursors.Commit(ctx, account.Account, state); err != nil {
		s.log.Errorf("Failed to persist cursor for %s: %v [%s]", account.Account.Name, err, processingId)
	}
}

// markerMinus backs a numeric marker off by delta, flooring at 1. Unparsable
// markers are returned unchanged.
func markerMinus(marker string, delta uint64) string {
	value, err := strconv.ParseUint(marker, 10, 64)
	if err != nil {
		return marker
	}
	if value <= delta {
		return "1"
	}
	return strconv.FormatUint(value-delta, 10)
}

// markerLess reports whether a is numerically lower than b. Markers that do
// not parse never compare lower, so an odd marker cannot wedge the cursor.
func markerLess(a, b string) bool {
	av, errA := strconv.ParseUint(a, 10, 64)
	bv, errB := strconv.ParseUint(b, 10, 64)
	if errA != nil || errB != nil {
		return false
	}
	return av < bv
}
