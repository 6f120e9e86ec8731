package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slotnik/internal/domain"
	"slotnik/internal/events"
	"slotnik/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NotifyTask is one pending notification about a booking change.
type NotifyTask struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NotifyWorker drains booking events into the notifier. Redis keeps the queue
// durable across restarts; без Redis задачи живут в памяти процесса.
type NotifyWorker struct {
	notifier      domain.Notifier
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan NotifyTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger
}

// NewNotifyWorker builds a worker with sane defaults.
func NewNotifyWorker(notifier domain.Notifier, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *NotifyWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &NotifyWorker{
		notifier:      notifier,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan NotifyTask, 128),
		redisQueueKey: models.NotifyQueueKey,
		deadLetterKey: models.NotifyDeadLetterKey,
		pollInterval:  2 * time.Second,
		logger:        logger,
	}
}

// BindBus subscribes the worker to every booking event type on the bus.
func (w *NotifyWorker) BindBus(bus *events.EventBus) {
	types := []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingDeclined,
		events.EventBookingCancelled,
		events.EventBookingCompleted,
		events.EventBookingRescheduled,
	}
	for _, eventType := range types {
		bus.Subscribe(eventType, func(event *events.Event) error {
			return w.Enqueue(context.Background(), event.Type, event.Payload)
		})
	}
}

// Enqueue schedules a notification via redis or the in-memory queue.
func (w *NotifyWorker) Enqueue(ctx context.Context, eventType string, payload []byte) error {
	if eventType == "" {
		return errors.New("event type is required")
	}

	task := NotifyTask{
		ID:        uuid.NewString(),
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("notify_worker: redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return fmt.Errorf("notify queue full, task %s dropped", task.ID)
	}
}

// Start launches the main loop; stops when ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("notify_worker: started")
	defer w.logger.Info().Msg("notify_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}

		if w.redis == nil {
			// The redis path already blocks on BRPOP; only the pure
			// in-memory mode needs a poll pause.
			select {
			case <-ctx.Done():
				return
			case t := <-w.queue:
				w.processTask(ctx, t)
			case <-time.After(w.pollInterval):
			}
		}
	}
}

func (w *NotifyWorker) tryLocalQueue() (NotifyTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return NotifyTask{}, false
	}
}

func (w *NotifyWorker) tryRedis(ctx context.Context) (NotifyTask, bool) {
	if w.redis == nil {
		return NotifyTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
			return NotifyTask{}, false
		}
		w.logger.Error().Err(err).Msg("notify_worker: redis BRPOP error")
		return NotifyTask{}, false
	}
	if len(res) != 2 {
		return NotifyTask{}, false
	}
	var task NotifyTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("notify_worker: decode redis task")
		return NotifyTask{}, false
	}
	return task, true
}

// processTask delivers with exponential backoff and dead-letters after the
// retry budget is spent.
func (w *NotifyWorker) processTask(ctx context.Context, task NotifyTask) {
	err := w.notifier.Notify(ctx, task.Payload)
	if err == nil {
		w.logger.Debug().Str("task", task.ID).Str("event", task.EventType).Msg("notification delivered")
		return
	}

	task.RetryCount++
	task.LastError = err.Error()
	if task.RetryCount >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(err).Str("task", task.ID).Int("attempts", task.RetryCount).
			Msg("notify_worker: task failed, dead-lettering")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	w.logger.Warn().Err(err).Str("task", task.ID).Dur("retry_in", delay).Msg("notify_worker: delivery failed")

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}

	if enqueueErr := w.requeue(ctx, task); enqueueErr != nil {
		w.logger.Error().Err(enqueueErr).Str("task", task.ID).Msg("notify_worker: requeue failed")
		w.pushDeadLetter(ctx, task)
	}
}

func (w *NotifyWorker) requeue(ctx context.Context, task NotifyTask) error {
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err == nil {
			return nil
		}
	}
	select {
	case w.queue <- task:
		return nil
	default:
		return errors.New("notify queue full")
	}
}

func (w *NotifyWorker) pushRedis(ctx context.Context, task NotifyTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *NotifyWorker) pushDeadLetter(ctx context.Context, task NotifyTask) {
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Str("task", task.ID).Msg("notify_worker: encode deadletter")
		return
	}
	if w.redis == nil {
		w.logger.Error().Str("task", task.ID).RawJSON("payload", data).Msg("notify_worker: deadletter (no redis)")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Str("task", task.ID).Msg("notify_worker: deadletter push")
	}
}
