package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
)

func TestRegistry_ResolveByAddress(t *testing.T) {
	r := NewRegistry()
	account := NewMonitoredAccount(&models.Account{
		Name:  "Primary Account",
		Email: "primary@gmail.com",
	}, nil, models.CursorState{})
	r.Add(account)

	resolved, ok := r.Resolve("primary@gmail.com")
	assert.True(t, ok)
	assert.Same(t, account, resolved)
}

func TestRegistry_ResolveIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Add(NewMonitoredAccount(&models.Account{Email: "Primary@Gmail.com"}, nil, models.CursorState{}))

	_, ok := r.Resolve("primary@gmail.com")
	assert.True(t, ok)
}

func TestRegistry_ResolveUnknownAddress(t *testing.T) {
	r := NewRegistry()
	r.Add(NewMonitoredAccount(&models.Account{Email: "primary@gmail.com"}, nil, models.CursorState{}))

	_, ok := r.Resolve("stranger@gmail.com")
	assert.False(t, ok)
}

func TestRegistry_AllPreservesConfigurationOrder(t *testing.T) {
	r := NewRegistry()
	first := NewMonitoredAccount(&models.Account{Email: "a@gmail.com"}, nil, models.CursorState{})
	second := NewMonitoredAccount(&models.Account{Email: "b@gmail.com"}, nil, models.CursorState{})
	r.Add(first)
	r.Add(second)

	all := r.All()
	assert.Len(t, all, 2)
	assert.Same(t, first, all[0])
	assert.Same(t, second, all[1])
	assert.Equal(t, 2, r.Len())
}

func TestMonitoredAccount_CursorRoundTrip(t *testing.T) {
	account := NewMonitoredAccount(&models.Account{Email: "a@gmail.com"}, nil, models.CursorState{
		LastHistoryId: "100",
	})

	assert.Equal(t, "100", account.Cursor().LastHistoryId)

	account.SetCursor(models.CursorState{LastHistoryId: "200", LastSeenMessageId: "xyz"})
	status := account.Status()
	assert.Equal(t, "200", status.LastHistoryId)
	assert.Equal(t, "xyz", status.LastSeenMessageId)
}
