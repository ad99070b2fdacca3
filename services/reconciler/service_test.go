package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkasajim/realtime-gmail-monitor/config"
	"github.com/mkasajim/realtime-gmail-monitor/dto"
	monitor_errors "github.com/mkasajim/realtime-gmail-monitor/errors"
	"github.com/mkasajim/realtime-gmail-monitor/internal/dedup"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
	"github.com/mkasajim/realtime-gmail-monitor/internal/registry"
	"github.com/mkasajim/realtime-gmail-monitor/services/display"
)

type fakeProvider struct {
	mu sync.Mutex

	historyIds   []string
	historyErr   error
	historyStart string
	historyCalls int

	recentIds   []string
	recentErr   error
	recentCalls int

	messages map[string]*models.Email
	getCalls []string

	currentHistoryId string
	currentErr       error
}

func (f *fakeProvider) ListHistory(ctx context.Context, startHistoryId string, max int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	f.historyStart = startHistoryId
	return f.historyIds, f.historyErr
}

func (f *fakeProvider) ListRecent(ctx context.Context, max int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recentCalls++
	return f.recentIds, f.recentErr
}

func (f *fakeProvider) GetMessage(ctx context.Context, id string) (*models.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, id)
	email, ok := f.messages[id]
	if !ok {
		return nil, monitor_errors.ErrMessageNotFound
	}
	return email, nil
}

func (f *fakeProvider) CurrentHistoryId(ctx context.Context) (string, error) {
	return f.currentHistoryId, f.currentErr
}

func (f *fakeProvider) Watch(ctx context.Context, topicName string) (time.Time, error) {
	return time.Time{}, nil
}

type fakeCursorRepository struct {
	mu        sync.Mutex
	commits   []models.CursorState
	commitErr error
}

func (f *fakeCursorRepository) Load(ctx context.Context, account *models.Account) (models.CursorState, error) {
	return models.CursorState{}, nil
}

func (f *fakeCursorRepository) Commit(ctx context.Context, account *models.Account, state models.CursorState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, state)
	return f.commitErr
}

func (f *fakeCursorRepository) lastCommit(t *testing.T) models.CursorState {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.commits)
	return f.commits[len(f.commits)-1]
}

type recordingRenderer struct {
	mu       sync.Mutex
	rendered []string
}

func (r *recordingRenderer) Render(email *models.Email, accountLabel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, email.ID)
}

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func testConfig() *config.ReconcilerConfig {
	return &config.ReconcilerConfig{
		BaselineBackoff:  100,
		HistoryPageSize:  100,
		SnapshotPageSize: 10,
		BurstWindow:      2 * time.Second,
	}
}

type harness struct {
	svc      *Service
	registry *registry.Registry
	cursors  *fakeCursorRepository
	renderer *recordingRenderer
}

func newHarness(accounts ...*registry.MonitoredAccount) *harness {
	r := registry.NewRegistry()
	for _, a := range accounts {
		r.Add(a)
	}
	cursors := &fakeCursorRepository{}
	renderer := &recordingRenderer{}
	log := testLogger()
	gate := display.NewService(dedup.NewCache(100, 50), renderer, log)
	return &harness{
		svc:      NewService(r, cursors, gate, testConfig(), log),
		registry: r,
		cursors:  cursors,
		renderer: renderer,
	}
}

func email(id string) *models.Email {
	return &models.Email{ID: id, Subject: "Subject " + id, ReceivedAt: time.Now()}
}

func TestReconcile_HistoryScanDisplaysAndCommitsNotificationMarker(t *testing.T) {
	provider := &fakeProvider{
		historyIds: []string{"abc"},
		messages:   map[string]*models.Email{"abc": email("abc")},
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "A", Email: "a@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "500"},
	)
	h := newHarness(account)

	h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "a@gmail.com", HistoryId: "512"})

	assert.Equal(t, []string{"abc"}, h.renderer.rendered)
	assert.Equal(t, "500", provider.historyStart)
	// the history path never touches the last-seen message id
	committed := h.cursors.lastCommit(t)
	assert.Equal(t, "512", committed.LastHistoryId)
	assert.Empty(t, committed.LastSeenMessageId)
	assert.Equal(t, 0, provider.recentCalls)
}

func TestReconcile_SnapshotUnchangedCommitsMarkerOnly(t *testing.T) {
	provider := &fakeProvider{
		recentIds: []string{"X", "older-1", "older-2"},
		messages:  map[string]*models.Email{},
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "B", Email: "b@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "900", LastSeenMessageId: "X"},
	)
	h := newHarness(account)

	h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "b@gmail.com", HistoryId: "930"})

	assert.Empty(t, h.renderer.rendered)
	assert.Empty(t, provider.getCalls)
	committed := h.cursors.lastCommit(t)
	assert.Equal(t, "930", committed.LastHistoryId)
	assert.Equal(t, "X", committed.LastSeenMessageId)
}

func TestReconcile_SnapshotFallbackDisplaysNewMessage(t *testing.T) {
	provider := &fakeProvider{
		recentIds: []string{"Y", "X"},
		messages:  map[string]*models.Email{"Y": email("Y")},
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "B", Email: "b@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "900", LastSeenMessageId: "X"},
	)
	h := newHarness(account)

	h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "b@gmail.com", HistoryId: "930"})

	assert.Equal(t, []string{"Y"}, h.renderer.rendered)
	assert.Equal(t, []string{"Y"}, provider.getCalls)
	committed := h.cursors.lastCommit(t)
	assert.Equal(t, "930", committed.LastHistoryId)
	assert.Equal(t, "Y", committed.LastSeenMessageId)
}

func TestReconcile_FirstRunStoresBaselineWithoutDisplay(t *testing.T) {
	provider := &fakeProvider{
		currentHistoryId: "1000",
		recentIds:        []string{"m1", "m0"},
		messages:         map[string]*models.Email{"m1": email("m1")},
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "C", Email: "c@gmail.com"},
		provider,
		models.CursorState{},
	)
	h := newHarness(account)

	h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "c@gmail.com", HistoryId: "1005"})

	// synthetic starting marker is the current id backed off by 100
	assert.Equal(t, "900", provider.historyStart)
	assert.Empty(t, h.renderer.rendered)
	committed := h.cursors.lastCommit(t)
	assert.Equal(t, "1005", committed.LastHistoryId)
	assert.Equal(t, "m1", committed.LastSeenMessageId)
}

func TestReconcile_UnknownAccountIsNoOp(t *testing.T) {
	provider := &fakeProvider{}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "A", Email: "a@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "500"},
	)
	h := newHarness(account)

	h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "stranger@gmail.com", HistoryId: "999"})

	assert.Zero(t, provider.historyCalls)
	assert.Zero(t, provider.recentCalls)
	assert.Empty(t, provider.getCalls)
	assert.Empty(t, h.cursors.commits)
}

func TestReconcile_ProviderFailuresStillAdvanceMarker(t *testing.T) {
	provider := &fakeProvider{
		historyErr: assert.AnError,
		recentErr:  assert.AnError,
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "A", Email: "a@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "500", LastSeenMessageId: "X"},
	)
	h := newHarness(account)

	h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "a@gmail.com", HistoryId: "512"})

	// both tiers failed, yet the cursor moved so the engine cannot loop on
	// the same window forever
	committed := h.cursors.lastCommit(t)
	assert.Equal(t, "512", committed.LastHistoryId)
	assert.Equal(t, "X", committed.LastSeenMessageId)
}

func TestReconcile_StaleNotificationNeverRollsMarkerBack(t *testing.T) {
	provider := &fakeProvider{
		recentIds: []string{"X"},
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "A", Email: "a@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "600", LastSeenMessageId: "X"},
	)
	h := newHarness(account)

	h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "a@gmail.com", HistoryId: "512"})

	committed := h.cursors.lastCommit(t)
	assert.Equal(t, "600", committed.LastHistoryId)
	assert.Equal(t, "600", account.Cursor().LastHistoryId)
}

func TestReconcile_UnretrievableMessagesAreSkipped(t *testing.T) {
	provider := &fakeProvider{
		historyIds: []string{"gone", "abc"},
		messages:   map[string]*models.Email{"abc": email("abc")},
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "A", Email: "a@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "500"},
	)
	h := newHarness(account)

	h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "a@gmail.com", HistoryId: "512"})

	assert.Equal(t, []string{"gone", "abc"}, provider.getCalls)
	assert.Equal(t, []string{"abc"}, h.renderer.rendered)
	assert.Equal(t, "512", h.cursors.lastCommit(t).LastHistoryId)
}

func TestReconcile_DuplicateNotificationDisplaysOnce(t *testing.T) {
	provider := &fakeProvider{
		historyIds: []string{"abc"},
		messages:   map[string]*models.Email{"abc": email("abc")},
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "A", Email: "a@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "500"},
	)
	h := newHarness(account)

	notification := dto.Notification{EmailAddress: "a@gmail.com", HistoryId: "512"}
	h.svc.Reconcile(context.Background(), notification)
	h.svc.Reconcile(context.Background(), notification)

	assert.Equal(t, []string{"abc"}, h.renderer.rendered)
}

func TestReconcile_PersistenceFailureDoesNotRollBackMemory(t *testing.T) {
	provider := &fakeProvider{
		historyIds: []string{"abc"},
		messages:   map[string]*models.Email{"abc": email("abc")},
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "A", Email: "a@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "500"},
	)
	h := newHarness(account)
	h.cursors.commitErr = assert.AnError

	h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "a@gmail.com", HistoryId: "512"})

	assert.Equal(t, []string{"abc"}, h.renderer.rendered)
	assert.Equal(t, "512", account.Cursor().LastHistoryId)
}

func TestReconcile_ConcurrentPassesSerializePerAccount(t *testing.T) {
	provider := &fakeProvider{
		historyIds: []string{"abc"},
		messages:   map[string]*models.Email{"abc": email("abc")},
	}
	account := registry.NewMonitoredAccount(
		&models.Account{Name: "A", Email: "a@gmail.com"},
		provider,
		models.CursorState{LastHistoryId: "500"},
	)
	h := newHarness(account)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.svc.Reconcile(context.Background(), dto.Notification{EmailAddress: "a@gmail.com", HistoryId: "512"})
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"abc"}, h.renderer.rendered)
	assert.Equal(t, "512", account.Cursor().LastHistoryId)

	// serialized commits never move the marker below a previously committed one
	h.cursors.mu.Lock()
	defer h.cursors.mu.Unlock()
	for _, committed := range h.cursors.commits {
		assert.Equal(t, "512", committed.LastHistoryId)
	}
}
