package dto

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Notification is the decoded payload of one bus message: which account
// changed and the provider's history id as of notification send time.
// Notifications arrive at least once, possibly duplicated and out of order.
type Notification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryId    string `json:"historyId"`
}

// gmailPushPayload matches the JSON Gmail publishes to the Pub/Sub topic.
// historyId is a number on the wire; the domain treats it as opaque text.
type gmailPushPayload struct {
	EmailAddress string      `json:"emailAddress"`
	HistoryId    json.Number `json:"historyId"`
}

// DecodeNotification parses a raw bus payload into a Notification.
func DecodeNotification(body []byte) (Notification, error) {
	var payload gmailPushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Notification{}, errors.Wrap(err, "failed to unmarshal notification payload")
	}
	if payload.EmailAddress == "" {
		return Notification{}, errors.New("notification payload has no email address")
	}
	return Notification{
		EmailAddress: payload.EmailAddress,
		HistoryId:    payload.HistoryId.String(),
	}, nil
}
