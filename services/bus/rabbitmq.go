package bus

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/mkasajim/realtime-gmail-monitor/dto"
	"github.com/mkasajim/realtime-gmail-monitor/interfaces"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/tracing"
)

// RabbitMQBus consumes Gmail push payloads relayed into an AMQP queue.
// Same payload and acknowledgment semantics as the Pub/Sub binding.
type RabbitMQBus struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	url             string
	queueName       string
	log             logger.Logger
}

func NewRabbitMQBus(url, queueName string, log logger.Logger) (*RabbitMQBus, error) {
	bus := &RabbitMQBus{
		url:       url,
		queueName: queueName,
		log:       log,
	}

	if err := bus.connect(); err != nil {
		return nil, err
	}

	return bus, nil
}

func (b *RabbitMQBus) connect() error {
	b.connectionMutex.Lock()
	defer b.connectionMutex.Unlock()

	var err error
	b.connection, err = amqp091.Dial(b.url)
	if err != nil {
		return errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	go func() {
		notifyClose := b.connection.NotifyClose(make(chan *amqp091.Error))
		<-notifyClose
		b.log.Warn("RabbitMQ connection closed, attempting to reconnect")
		_ = b.connect()
	}()

	return nil
}

// conn returns the current connection; the NotifyClose goroutine replaces it
// under connectionMutex on reconnect.
func (b *RabbitMQBus) conn() *amqp091.Connection {
	b.connectionMutex.Lock()
	defer b.connectionMutex.Unlock()
	return b.connection
}

// Check verifies the queue exists on the broker.
func (b *RabbitMQBus) Check(ctx context.Context) error {
	channel, err := b.conn().Channel()
	if err != nil {
		return errors.Wrap(err, "failed to open channel")
	}
	defer channel.Close()

	_, err = channel.QueueDeclarePassive(b.queueName, true, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "queue %s is not available", b.queueName)
	}
	return nil
}

// Listen consumes the queue until ctx is cancelled, reconnecting on channel
// or connection loss. Deliveries are acknowledged after processing whatever
// the outcome.
func (b *RabbitMQBus) Listen(ctx context.Context, handler interfaces.NotificationHandler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		channel, err := b.conn().Channel()
		if err != nil {
			b.log.Errorf("Failed to open channel for queue %s: %v. Retrying...", b.queueName, err)
			if !sleepCtx(ctx, 5*time.Second) {
				return nil
			}
			continue
		}

		deliveries, err := channel.Consume(
			b.queueName, // queue
			"",          // consumer tag
			false,       // auto-ack
			false,       // exclusive
			false,       // no-local
			false,       // no-wait
			nil,         // args
		)
		if err != nil {
			channel.Close()
			b.log.Errorf("Failed to register consumer on queue %s: %v. Retrying...", b.queueName, err)
			if !sleepCtx(ctx, 5*time.Second) {
				return nil
			}
			continue
		}

		b.log.Infof("Listening for notifications on queue %s", b.queueName)

		if !b.consume(ctx, deliveries, handler) {
			channel.Close()
			return nil
		}

		channel.Close()
		b.log.Warnf("Connection lost for queue %s. Reconnecting...", b.queueName)
		if !sleepCtx(ctx, 5*time.Second) {
			return nil
		}
	}
}

// consume drains deliveries until the channel closes or ctx is cancelled.
// Returns false when the listener should stop for good.
func (b *RabbitMQBus) consume(ctx context.Context, deliveries <-chan amqp091.Delivery, handler interfaces.NotificationHandler) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case d, ok := <-deliveries:
			if !ok {
				return true
			}
			b.handleDelivery(ctx, d, handler)
		}
	}
}

func (b *RabbitMQBus) handleDelivery(ctx context.Context, d amqp091.Delivery, handler interfaces.NotificationHandler) {
	defer tracing.RecoverAndLogToJaeger(b.log)

	ctx, span := tracing.StartBusMessageTracerSpan(ctx, "RabbitMQBus.handleDelivery")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)

	notification, err := dto.DecodeNotification(d.Body)
	if err != nil {
		tracing.TraceErr(span, err)
		b.log.Errorf("Failed to decode notification: %v", err)
	} else {
		handler(ctx, notification)
	}

	b.retryAck(d)
}

func (b *RabbitMQBus) retryAck(d amqp091.Delivery) {
	maxRetries := 5
	retryDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		if err := d.Ack(false); err == nil {
			return
		}
		time.Sleep(retryDelay)
	}

	b.log.Errorf("Failed to acknowledge delivery after %d attempts", maxRetries)
}

func (b *RabbitMQBus) Close() error {
	b.connectionMutex.Lock()
	defer b.connectionMutex.Unlock()

	if b.connection != nil && !b.connection.IsClosed() {
		return b.connection.Close()
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
