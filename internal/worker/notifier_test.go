package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"slotnik/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	payloads [][]byte
}

func (f *fakeNotifier) Notify(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.err
}

func (f *fakeNotifier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestNotifyProcessTaskSuccess(t *testing.T) {
	notifier := &fakeNotifier{}
	w := NewNotifyWorker(notifier, nil, RetryPolicy{}, discardLogger())

	ctx := context.Background()
	require.NoError(t, w.Enqueue(ctx, events.EventBookingCreated, []byte(`{"booking_id":1}`)))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, task)

	assert.Equal(t, 1, notifier.calls())
}

func TestNotifyRetriesThenDeadLetters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	notifier := &fakeNotifier{err: errors.New("provider down")}
	w := NewNotifyWorker(notifier, client, RetryPolicy{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 2,
	}, discardLogger())

	ctx := context.Background()
	require.NoError(t, w.Enqueue(ctx, events.EventBookingCreated, []byte(`{"booking_id":2}`)))

	// Drain queue manually twice: first delivery fails and requeues, the
	// second spends the retry budget.
	task, ok := w.tryRedis(ctx)
	require.True(t, ok)
	w.processTask(ctx, task)

	task, ok = w.tryRedis(ctx)
	require.True(t, ok)
	w.processTask(ctx, task)

	dead, err := client.LRange(ctx, w.deadLetterKey, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, dead, 1)

	var deadTask NotifyTask
	require.NoError(t, json.Unmarshal([]byte(dead[0]), &deadTask))
	assert.Equal(t, 2, deadTask.RetryCount)
	assert.Equal(t, "provider down", deadTask.LastError)
	assert.Equal(t, 2, notifier.calls())
}

func TestNotifyFallsBackToMemoryWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	notifier := &fakeNotifier{}
	w := NewNotifyWorker(notifier, client, RetryPolicy{}, discardLogger())

	ctx := context.Background()
	require.NoError(t, w.Enqueue(ctx, events.EventBookingCreated, []byte(`{"booking_id":3}`)))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, events.EventBookingCreated, task.EventType)
}

func TestBindBusEnqueuesPublishedEvents(t *testing.T) {
	notifier := &fakeNotifier{}
	w := NewNotifyWorker(notifier, nil, RetryPolicy{}, discardLogger())

	bus := events.NewEventBus()
	w.BindBus(bus)

	require.NoError(t, bus.PublishJSON(events.EventBookingConfirmed, map[string]any{"booking_id": 4}))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, events.EventBookingConfirmed, task.EventType)
	assert.JSONEq(t, `{"booking_id":4}`, string(task.Payload))
}

func TestRetryPolicyClampsDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 4 * time.Second, BackoffFactor: 2}

	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 4*time.Second, p.NextDelay(10))
	assert.Equal(t, time.Second, p.NextDelay(0))
}
