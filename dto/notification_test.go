package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNotificationNumericHistoryId(t *testing.T) {
	notification, err := DecodeNotification([]byte(`{"emailAddress":"work@example.com","historyId":987654}`))

	require.NoError(t, err)
	assert.Equal(t, "work@example.com", notification.EmailAddress)
	assert.Equal(t, "987654", notification.HistoryId)
}

func TestDecodeNotificationQuotedHistoryId(t *testing.T) {
	notification, err := DecodeNotification([]byte(`{"emailAddress":"work@example.com","historyId":"987654"}`))

	require.NoError(t, err)
	assert.Equal(t, "987654", notification.HistoryId)
}

func TestDecodeNotificationMissingEmailAddress(t *testing.T) {
	_, err := DecodeNotification([]byte(`{"historyId":987654}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no email address")
}

func TestDecodeNotificationMalformedBody(t *testing.T) {
	_, err := DecodeNotification([]byte("definitely not json"))

	require.Error(t, err)
}

func TestDecodeNotificationMissingHistoryId(t *testing.T) {
	notification, err := DecodeNotification([]byte(`{"emailAddress":"work@example.com"}`))

	require.NoError(t, err)
	assert.Equal(t, "", notification.HistoryId)
}
