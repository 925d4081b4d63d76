// Package service holds the outbound adapters of the platform.  The queue
// publisher forwards committed activity to RabbitMQ without ever blocking
// the request that produced it.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/queue"
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel with the activity queue declared.
type dialFunc func() (channel, func(), error)

// QueuePublisher implements platform.Notifier.  Notify enqueues into a
// bounded buffer; Run drains it and publishes persistent messages to the
// activity queue, redialing the broker after failures.  When the buffer is
// full the activity is dropped and logged.
type QueuePublisher struct {
	buf  chan model.Activity
	dial dialFunc
	log  *zap.Logger

	mu      sync.Mutex
	ch      channel
	closeFn func()
}

func NewQueuePublisher(url string, buffer int, log *zap.Logger) *QueuePublisher {
	return newQueuePublisher(func() (channel, func(), error) { return dialAMQP(url) }, buffer, log)
}

func newQueuePublisher(dial dialFunc, buffer int, log *zap.Logger) *QueuePublisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &QueuePublisher{buf: make(chan model.Activity, buffer), dial: dial, log: log.Named("activity-publisher")}
}

func dialAMQP(url string) (channel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.ActivityQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("queue declare: %w", err)
	}
	return ch, func() { _ = conn.Close() }, nil
}

// Notify implements platform.Notifier.
func (p *QueuePublisher) Notify(_ context.Context, a model.Activity) {
	select {
	case p.buf <- a:
	default:
		p.log.Warn("activity buffer full; dropping", zap.String("id", a.ID), zap.String("kind", string(a.Kind)))
	}
}

// Run publishes buffered activity until ctx is cancelled.
func (p *QueuePublisher) Run(ctx context.Context) {
	defer p.reset()
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-p.buf:
			if err := p.publish(ctx, a); err != nil {
				p.log.Warn("publish failed", zap.String("id", a.ID), zap.Error(err))
			}
		}
	}
}

func (p *QueuePublisher) publish(ctx context.Context, a model.Activity) error {
	body, err := json.Marshal(queue.NewActivityMessage(a))
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    a.ID,
		Timestamp:    a.At,
		Body:         body,
	}
	// One redial per message: a stale channel fails the first attempt.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		ch, err := p.channel()
		if err != nil {
			return err
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = ch.PublishWithContext(pctx, "", queue.ActivityQueueName, false, false, msg)
		cancel()
		if lastErr == nil {
			return nil
		}
		p.reset()
	}
	return lastErr
}

func (p *QueuePublisher) channel() (channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		return p.ch, nil
	}
	ch, closeFn, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.ch, p.closeFn = ch, closeFn
	return ch, nil
}

func (p *QueuePublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.closeFn()
	}
	p.ch, p.closeFn = nil, nil
}
