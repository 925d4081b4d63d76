package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// Journal is where consumed activity ends up.
type Journal interface {
	Append(ctx context.Context, e repository.JournalEntry) error
}

// StartActivityConsumer connects to RabbitMQ, declares the activity queue
// (durable) and appends every message to the journal.  It reconnects with
// exponential backoff and returns only when ctx is cancelled.  Messages that
// cannot be decoded or stored are rejected without requeueing so that a bad
// payload cannot loop forever.
func StartActivityConsumer(ctx context.Context, url string, journal Journal, log *zap.Logger) error {
	log = log.Named("activity-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, journal, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, journal Journal, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(ActivityQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ActivityQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(ctx, journal, d.Body); err != nil {
				log.Warn("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleMessage journals one delivery.  A redelivered message whose id is
// already journaled counts as handled.
func handleMessage(ctx context.Context, journal Journal, body []byte) error {
	var m ActivityMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if m.ID == "" {
		return errors.New("activity without id")
	}
	entry, err := m.JournalEntry()
	if err != nil {
		return fmt.Errorf("occurred_at: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := journal.Append(ctx, entry); err != nil && !errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}
