package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/queue"
)

type fakeChannel struct {
	mu        sync.Mutex
	failFirst bool
	published []amqp.Publishing
	keys      []string
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFirst {
		f.failFirst = false
		return errors.New("channel closed")
	}
	f.published = append(f.published, msg)
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func TestPublisherRedialsAfterFailure(t *testing.T) {
	ch := &fakeChannel{failFirst: true}
	dials := 0
	p := newQueuePublisher(func() (channel, func(), error) {
		dials++
		return ch, func() {}, nil
	}, 4, zap.NewNop())

	a := model.Activity{ID: "id-1", Kind: model.ActivityTicketUsed, EventID: 4, At: time.Now().UTC()}
	require.NoError(t, p.publish(context.Background(), a))
	assert.Equal(t, 2, dials)
	require.Equal(t, 1, ch.count())
	assert.Equal(t, queue.ActivityQueueName, ch.keys[0])
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)

	var m queue.ActivityMessage
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &m))
	assert.Equal(t, "ticket_used", m.Kind)
	assert.Equal(t, uint32(4), m.EventID)
}

func TestPublisherDropsWhenBufferFull(t *testing.T) {
	p := newQueuePublisher(func() (channel, func(), error) {
		return nil, nil, errors.New("unreachable")
	}, 1, zap.NewNop())

	p.Notify(context.Background(), model.Activity{ID: "a"})
	p.Notify(context.Background(), model.Activity{ID: "b"})
	assert.Len(t, p.buf, 1)
}

func TestPublisherRunDrainsBuffer(t *testing.T) {
	ch := &fakeChannel{}
	p := newQueuePublisher(func() (channel, func(), error) { return ch, func() {}, nil }, 8, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		p.Notify(ctx, model.Activity{ID: string(rune('a' + i)), At: time.Now().UTC()})
	}
	assert.Eventually(t, func() bool { return ch.count() == 3 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
