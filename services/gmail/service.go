package gmail

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	monitor_errors "github.com/mkasajim/realtime-gmail-monitor/errors"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
)

const inboxQuery = "in:inbox"

// Service is the Gmail-backed MailProvider for a single account.
type Service struct {
	address string
	api     *gmailapi.Service
	log     logger.Logger
}

func NewService(ctx context.Context, account *models.Account, credentialsFile string, log logger.Logger) (*Service, error) {
	tokenSource, err := newTokenSource(ctx, credentialsFile, account.TokenFile)
	if err != nil {
		return nil, err
	}

	api, err := gmailapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gmail service")
	}

	return &Service{
		address: account.Email,
		api:     api,
		log:     log,
	}, nil
}

// ListHistory returns ids of messages added since startHistoryId, one page,
// bounded to max results.
func (s *Service) ListHistory(ctx context.Context, startHistoryId string, max int64) ([]string, error) {
	start, err := strconv.ParseUint(startHistoryId, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid history id %q", startHistoryId)
	}

	response, err := s.api.Users.History.List("me").
		StartHistoryId(start).
		HistoryTypes("messageAdded").
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "history list failed")
	}

	var ids []string
	for _, record := range response.History {
		for _, added := range record.MessagesAdded {
			if added.Message != nil {
				ids = append(ids, added.Message.Id)
			}
		}
	}
	return ids, nil
}

// ListRecent returns up to max inbox message ids, most-recent-first.
func (s *Service) ListRecent(ctx context.Context, max int64) ([]string, error) {
	response, err := s.api.Users.Messages.List("me").
		MaxResults(max).
		Q(inboxQuery).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, "messages list failed")
	}

	ids := make([]string, 0, len(response.Messages))
	for _, message := range response.Messages {
		ids = append(ids, message.Id)
	}
	return ids, nil
}

func (s *Service) GetMessage(ctx context.Context, id string) (*models.Email, error) {
	message, err := s.api.Users.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return nil, errors.Wrap(monitor_errors.ErrMessageNotFound, id)
		}
		return nil, errors.Wrapf(err, "failed to get message %s", id)
	}

	return mapMessage(message), nil
}

func (s *Service) CurrentHistoryId(ctx context.Context) (string, error) {
	profile, err := s.api.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", errors.Wrap(err, "failed to get profile")
	}
	return strconv.FormatUint(profile.HistoryId, 10), nil
}

// Watch registers or renews the push-notification watch for this account.
// Gmail expires watches after about a week; renewal is cron-driven.
func (s *Service) Watch(ctx context.Context, topicName string) (time.Time, error) {
	response, err := s.api.Users.Watch("me", &gmailapi.WatchRequest{
		LabelIds:  []string{"INBOX"},
		TopicName: topicName,
	}).Context(ctx).Do()
	if err != nil {
		return time.Time{}, errors.Wrap(monitor_errors.ErrWatchFailed, err.Error())
	}

	return time.UnixMilli(response.Expiration), nil
}

// CheckConnection verifies the account is reachable and logs the latest inbox
// message id. Startup diagnostic only.
func (s *Service) CheckConnection(ctx context.Context) error {
	profile, err := s.api.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "connection check failed for %s", s.address)
	}
	s.log.Debugf("Current history id for %s: %d", s.address, profile.HistoryId)

	ids, err := s.ListRecent(ctx, 1)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		s.log.Warnf("No messages found in inbox for %s", s.address)
		return nil
	}
	s.log.Debugf("Connected to %s, latest message id: %s", s.address, ids[0])
	return nil
}

func mapMessage(message *gmailapi.Message) *models.Email {
	email := &models.Email{
		ID:         message.Id,
		Subject:    "No Subject",
		From:       "Unknown Sender",
		To:         "Unknown Recipient",
		DateHeader: "Unknown Date",
		Snippet:    message.Snippet,
		ReceivedAt: time.UnixMilli(message.InternalDate),
	}
	if email.Snippet == "" {
		email.Snippet = "No preview available"
	}
	if message.Payload == nil {
		return email
	}
	for _, header := range message.Payload.Headers {
		switch header.Name {
		case "Subject":
			email.Subject = header.Value
		case "From":
			email.From = header.Value
		case "To":
			email.To = header.Value
		case "Date":
			email.DateHeader = header.Value
		}
	}
	return email
}
