package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkasajim/realtime-gmail-monitor/dto"
)

func TestHandleMessageDispatchesDecodedNotification(t *testing.T) {
	bus := &PubSubBus{subscriptionID: "gmail-realtime-subscriber", log: testLogger()}

	var handled []dto.Notification
	bus.handleMessage(context.Background(), []byte(`{"emailAddress":"work@example.com","historyId":930}`),
		func(ctx context.Context, notification dto.Notification) {
			handled = append(handled, notification)
		})

	require.Len(t, handled, 1)
	assert.Equal(t, "930", handled[0].HistoryId)
}

func TestHandleMessageSwallowsDecodeFailure(t *testing.T) {
	bus := &PubSubBus{subscriptionID: "gmail-realtime-subscriber", log: testLogger()}

	handled := 0
	bus.handleMessage(context.Background(), []byte("not a payload"),
		func(ctx context.Context, notification dto.Notification) {
			handled++
		})

	// the caller acknowledges after handleMessage returns, whatever happened
	assert.Equal(t, 0, handled)
}
