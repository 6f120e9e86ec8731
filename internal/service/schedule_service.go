package service

import (
	"context"
	"fmt"
	"time"

	"slotnik/internal/database"
	"slotnik/internal/domain"
	"slotnik/internal/models"
	"slotnik/internal/schedule"
	"slotnik/internal/timeutil"

	"github.com/rs/zerolog"
)

// ScheduleService answers the two read-side questions of the engine: which
// start times are free on a date, and how a day's bookings lay out on the
// calendar.
type ScheduleService struct {
	repo           domain.Repository
	gen            schedule.SlotGenerator
	maxAdvanceDays int
	logger         *zerolog.Logger
	now            func() time.Time
}

func NewScheduleService(repo domain.Repository, stepMinutes, maxAdvanceDays int, logger *zerolog.Logger) *ScheduleService {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	return &ScheduleService{
		repo:           repo,
		gen:            schedule.NewSlotGenerator(stepMinutes),
		maxAdvanceDays: maxAdvanceDays,
		logger:         logger,
		now:            time.Now,
	}
}

// ValidateDate rejects dates before today and past the booking horizon.
func (s *ScheduleService) ValidateDate(date time.Time) error {
	today := timeutil.Midnight(s.now())
	if date.Before(today) {
		return database.ErrPastDate
	}
	if date.After(today.AddDate(0, 0, s.maxAdvanceDays)) {
		return database.ErrDateTooFar
	}
	return nil
}

// AvailableSlots computes the free start times for a service on a date. A
// closed or fully booked date yields an empty list, not an error.
func (s *ScheduleService) AvailableSlots(ctx context.Context, slug, dateStr string, serviceID int64) ([]string, error) {
	business, err := s.repo.GetBusinessBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	svc := business.ServiceByID(serviceID)
	if svc == nil {
		return nil, fmt.Errorf("%w: id %d", database.ErrUnknownService, serviceID)
	}

	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateDate(date); err != nil {
		return nil, err
	}

	booked, err := s.repo.GetDayBookings(ctx, business.ID, date, models.BlockingStatuses())
	if err != nil {
		return nil, fmt.Errorf("load day bookings: %w", err)
	}

	sched := schedule.NewWeekSchedule(business.Windows, business.Exceptions)
	slots := s.gen.Generate(sched, date, svc.DurationMin, booked, s.now())

	s.logger.Debug().Str("business", slug).Str("date", dateStr).Int64("service_id", serviceID).
		Int("slots", len(slots)).Msg("slots computed")

	return schedule.FormatSlots(slots), nil
}

// IsOpen reports whether the business takes bookings on the date at all.
func (s *ScheduleService) IsOpen(ctx context.Context, slug, dateStr string) (bool, error) {
	business, err := s.repo.GetBusinessBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return false, err
	}
	sched := schedule.NewWeekSchedule(business.Windows, business.Exceptions)
	return sched.IsOpen(date), nil
}

// DayCalendar returns a day's bookings together with their overlap layout,
// ready for side-by-side rendering.
func (s *ScheduleService) DayCalendar(ctx context.Context, slug, dateStr string) ([]models.Booking, []models.BookingLayout, error) {
	business, err := s.repo.GetBusinessBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return nil, nil, err
	}

	bookings, err := s.repo.GetDayBookings(ctx, business.ID, date, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("load day bookings: %w", err)
	}

	return bookings, schedule.ComputeLayout(bookings), nil
}
