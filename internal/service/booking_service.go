package service

import (
	"context"
	"fmt"
	"time"

	"slotnik/internal/database"
	"slotnik/internal/domain"
	"slotnik/internal/events"
	"slotnik/internal/models"
	"slotnik/internal/timeutil"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	sched    *ScheduleService
	logger   *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, sched *ScheduleService, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		sched:    sched,
		logger:   logger,
	}
}

// Commit is the single write path of the public booking flow. It runs after a
// successful code verification and is atomic: either the booking exists as
// pending afterwards, or an error comes back and nothing was written.
func (s *BookingService) Commit(ctx context.Context, booking *models.Booking) error {
	if err := s.sched.ValidateDate(booking.Date); err != nil {
		return err
	}

	booking.Status = models.StatusPending
	if err := s.repo.CreateBookingGuarded(ctx, booking); err != nil {
		return err
	}

	s.publishEvent(events.EventBookingCreated, booking, "client")
	return nil
}

// OwnerCreateParams describes a manual booking entered from the owner
// calendar. Duration comes from the service unless an explicit end time is
// given.
type OwnerCreateParams struct {
	BusinessSlug string
	ServiceID    int64
	Date         string
	StartTime    string
	EndTime      string // optional, overrides the service duration
	ClientName   string
	ClientPhone  string
	Note         string
	Status       string // optional, defaults to confirmed
}

func (s *BookingService) CreateByOwner(ctx context.Context, p OwnerCreateParams) (*models.Booking, error) {
	business, err := s.repo.GetBusinessBySlug(ctx, p.BusinessSlug)
	if err != nil {
		return nil, err
	}

	svc := business.ServiceByID(p.ServiceID)
	if svc == nil {
		return nil, fmt.Errorf("%w: id %d", database.ErrUnknownService, p.ServiceID)
	}

	date, err := timeutil.ParseDate(p.Date)
	if err != nil {
		return nil, err
	}
	if err := s.sched.ValidateDate(date); err != nil {
		return nil, err
	}

	startMin, err := timeutil.ToMinutes(p.StartTime)
	if err != nil {
		return nil, err
	}

	durationMin := svc.DurationMin
	if p.EndTime != "" {
		endMin, err := timeutil.ToMinutes(p.EndTime)
		if err != nil {
			return nil, err
		}
		if endMin <= startMin {
			return nil, fmt.Errorf("%w: end %q not after start %q", timeutil.ErrInvalidTime, p.EndTime, p.StartTime)
		}
		durationMin = endMin - startMin
	}

	status := p.Status
	if status == "" {
		status = models.StatusConfirmed
	}
	if status != models.StatusPending && status != models.StatusConfirmed {
		return nil, fmt.Errorf("%w: %q", database.ErrInvalidStatus, status)
	}

	booking := &models.Booking{
		BusinessID:  business.ID,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Date:        date,
		StartMin:    startMin,
		DurationMin: durationMin,
		Status:      status,
		ClientName:  p.ClientName,
		ClientPhone: p.ClientPhone,
		Note:        p.Note,
	}
	if err := s.repo.CreateBookingGuarded(ctx, booking); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCreated, booking, "owner")
	return booking, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, version int64) error {
	return s.transition(ctx, bookingID, version, models.StatusConfirmed, events.EventBookingConfirmed)
}

func (s *BookingService) DeclineBooking(ctx context.Context, bookingID, version int64) error {
	return s.transition(ctx, bookingID, version, models.StatusDeclined, events.EventBookingDeclined)
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID, version int64) error {
	return s.transition(ctx, bookingID, version, models.StatusCancelled, events.EventBookingCancelled)
}

func (s *BookingService) CompleteBooking(ctx context.Context, bookingID, version int64) error {
	return s.transition(ctx, bookingID, version, models.StatusCompleted, events.EventBookingCompleted)
}

func (s *BookingService) ReopenBooking(ctx context.Context, bookingID, version int64) error {
	return s.transition(ctx, bookingID, version, models.StatusPending, events.EventBookingCreated)
}

func (s *BookingService) transition(ctx context.Context, bookingID, version int64, status, eventType string) error {
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, bookingID, version, status); err != nil {
		return err
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err == nil {
		s.publishEvent(eventType, booking, "owner")
	}
	return nil
}

// RescheduleBooking moves a booking to a new date/start; the conflict check
// excludes the booking itself so moving inside its own interval works.
func (s *BookingService) RescheduleBooking(ctx context.Context, bookingID, version int64, dateStr, startTime string) error {
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return err
	}
	if err := s.sched.ValidateDate(date); err != nil {
		return err
	}
	startMin, err := timeutil.ToMinutes(startTime)
	if err != nil {
		return err
	}

	if err := s.repo.RescheduleBookingGuarded(ctx, bookingID, version, date, startMin); err != nil {
		return err
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err == nil {
		s.publishEvent(events.EventBookingRescheduled, booking, "owner")
	}
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, businessID int64, start, end time.Time) ([]models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, businessID, start, end)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		BusinessID:  booking.BusinessID,
		ServiceID:   booking.ServiceID,
		ServiceName: booking.ServiceName,
		Date:        booking.Date.Format(models.DateLayout),
		StartMin:    booking.StartMin,
		DurationMin: booking.DurationMin,
		Status:      booking.Status,
		ClientName:  booking.ClientName,
		ChangedBy:   changedBy,
		ChangedAt:   time.Now(),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
