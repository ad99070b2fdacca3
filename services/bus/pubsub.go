// Package bus binds the notification listener to a concrete message bus.
// Every delivered message is acknowledged after processing, success or not:
// the system accepts at-least-once delivery and relies on the display gate
// and the advancing cursor for at-most-once effect.
package bus

import (
	"context"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"github.com/mkasajim/realtime-gmail-monitor/dto"
	monitor_errors "github.com/mkasajim/realtime-gmail-monitor/errors"
	"github.com/mkasajim/realtime-gmail-monitor/interfaces"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/tracing"
)

type PubSubBus struct {
	client         *pubsub.Client
	subscriptionID string
	log            logger.Logger
}

func NewPubSubBus(ctx context.Context, projectID, subscriptionID string, log logger.Logger) (*PubSubBus, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pubsub client")
	}

	return &PubSubBus{
		client:         client,
		subscriptionID: subscriptionID,
		log:            log,
	}, nil
}

// Check verifies the subscription exists before the process commits to it.
func (b *PubSubBus) Check(ctx context.Context) error {
	exists, err := b.client.Subscription(b.subscriptionID).Exists(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check pubsub subscription")
	}
	if !exists {
		return errors.Wrapf(monitor_errors.ErrBusUnavailable, "subscription %s does not exist", b.subscriptionID)
	}
	return nil
}

// Listen blocks receiving notifications until ctx is cancelled. The Pub/Sub
// client invokes the callback concurrently; the handler stack is safe under
// that. Receive failures restart with jittered backoff.
func (b *PubSubBus) Listen(ctx context.Context, handler interfaces.NotificationHandler) error {
	subscription := b.client.Subscription(b.subscriptionID)

	retry := &backoff.Backoff{
		Min:    time.Second,
		Max:    30 * time.Second,
		Jitter: true,
	}

	for {
		b.log.Infof("Listening for notifications on subscription %s", b.subscriptionID)

		err := subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
			b.handleMessage(ctx, msg.Data, handler)
			msg.Ack()
		})

		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}

		delay := retry.Duration()
		b.log.Errorf("Pub/Sub receive failed: %v. Retrying in %s", err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *PubSubBus) handleMessage(ctx context.Context, body []byte, handler interfaces.NotificationHandler) {
	defer tracing.RecoverAndLogToJaeger(b.log)

	ctx, span := tracing.StartBusMessageTracerSpan(ctx, "PubSubBus.handleMessage")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)

	notification, err := dto.DecodeNotification(body)
	if err != nil {
		// decode failures are acknowledged like everything else
		tracing.TraceErr(span, err)
		b.log.Errorf("Failed to decode notification: %v", err)
		return
	}

	handler(ctx, notification)
}

func (b *PubSubBus) Close() error {
	return b.client.Close()
}
