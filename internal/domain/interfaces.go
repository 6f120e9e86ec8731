package domain

import (
	"context"
	"errors"
	"time"

	"slotnik/internal/models"
)

// ErrTransient marks retryable infrastructure failures coming back from
// external collaborators. Callers may re-issue the identical idempotent
// request; wrap with fmt.Errorf("...: %w", ErrTransient).
var ErrTransient = errors.New("transient failure")

type Repository interface {
	GetBusinessBySlug(ctx context.Context, slug string) (*models.Business, error)
	GetBusinessByID(ctx context.Context, id int64) (*models.Business, error)
	SetBusinesses(businesses []models.Business)

	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CreateBookingGuarded(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatusWithVersion(ctx context.Context, id int64, version int64, status string) error
	RescheduleBookingGuarded(ctx context.Context, id int64, version int64, date time.Time, startMin int) error
	GetDayBookings(ctx context.Context, businessID int64, date time.Time, statuses []string) ([]models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, businessID int64, start, end time.Time) ([]models.Booking, error)
	HasConflict(ctx context.Context, businessID int64, date time.Time, startMin, durationMin int, excludeID int64) (bool, error)
}

// CodeStore keeps at most one live verification code per phone. SaveCode
// replaces whatever code was live before; a read after expiry returns nil.
type CodeStore interface {
	SaveCode(ctx context.Context, code *models.VerificationCode, ttl time.Duration) error
	GetCode(ctx context.Context, phone string) (*models.VerificationCode, error)
	ConsumeCode(ctx context.Context, phone string) error
	StartCooldown(ctx context.Context, phone string, window time.Duration) error
	CooldownRemaining(ctx context.Context, phone string) (time.Duration, error)
}

// DraftStore persists in-flight booking drafts keyed by session id.
type DraftStore interface {
	GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error)
	SaveDraft(ctx context.Context, draft *models.BookingDraft) error
	ClearDraft(ctx context.Context, sessionID string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// CodeSender hands a one-time code to the out-of-scope delivery layer.
type CodeSender interface {
	SendCode(ctx context.Context, phone, channel, code string) error
}

// Notifier delivers a booking-change notification payload. Delivery transport
// is a black box; the worker only guarantees retry and dead-lettering.
type Notifier interface {
	Notify(ctx context.Context, payload []byte) error
}
