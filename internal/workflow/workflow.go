// Package workflow drives a client through the booking steps:
// service → date → time → contact → verification → committed. Transitions
// take an explicit draft value and return an updated copy; invalid input
// blocks the transition and leaves the draft untouched.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"slotnik/internal/database"
	"slotnik/internal/models"
	"slotnik/internal/schedule"
	"slotnik/internal/timeutil"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrWrongStep    = errors.New("transition not allowed from this step")
	ErrFinished     = errors.New("workflow already finished")
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// BusinessSource resolves the business a draft books against.
type BusinessSource interface {
	GetBusinessBySlug(ctx context.Context, slug string) (*models.Business, error)
}

// SlotSource computes free start times; backed by ScheduleService.
type SlotSource interface {
	AvailableSlots(ctx context.Context, slug, date string, serviceID int64) ([]string, error)
}

// Verifier gates the commit behind a one-time code.
type Verifier interface {
	Send(ctx context.Context, phone, channel string) error
	Verify(ctx context.Context, phone, code string) error
}

// Committer writes the final booking; it re-validates the slot server-side.
type Committer interface {
	Commit(ctx context.Context, booking *models.Booking) error
}

// Input carries the client's answer for the draft's current step. Only the
// fields belonging to that step are read.
type Input struct {
	ServiceID int64  `json:"service_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Note      string `json:"note"`
	Channel   string `json:"channel"`
	Code      string `json:"code"`
}

type Engine struct {
	businesses BusinessSource
	slots      SlotSource
	gate       Verifier
	bookings   Committer
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewEngine(businesses BusinessSource, slots SlotSource, gate Verifier, bookings Committer, logger *zerolog.Logger) *Engine {
	return &Engine{
		businesses: businesses,
		slots:      slots,
		gate:       gate,
		bookings:   bookings,
		logger:     logger,
		now:        time.Now,
	}
}

var stepOrder = map[string]int{
	models.StepService: 0,
	models.StepDate:    1,
	models.StepTime:    2,
	models.StepContact: 3,
	models.StepVerify:  4,
}

// Begin opens a fresh draft for the business. With exactly one active service
// it is pre-selected, but the client still confirms it with an explicit
// advance.
func (e *Engine) Begin(ctx context.Context, businessSlug string) (*models.BookingDraft, error) {
	business, err := e.businesses.GetBusinessBySlug(ctx, businessSlug)
	if err != nil {
		return nil, err
	}

	draft := &models.BookingDraft{
		SessionID:    uuid.NewString(),
		BusinessSlug: business.Slug,
		Step:         models.StepService,
		UpdatedAt:    e.now(),
	}

	if services := business.ActiveServices(); len(services) == 1 {
		draft.ServiceID = services[0].ID
		draft.DurationMin = services[0].DurationMin
	}

	return draft, nil
}

// Advance applies the client's answer to the draft's current step. On error
// the returned draft is the input draft and no state has changed, except for
// the commit-conflict case where the draft regresses to time selection with
// slots re-fetched.
func (e *Engine) Advance(ctx context.Context, draft *models.BookingDraft, in Input) (*models.BookingDraft, error) {
	switch draft.Step {
	case models.StepService:
		return e.advanceService(ctx, draft, in)
	case models.StepDate:
		return e.advanceDate(ctx, draft, in)
	case models.StepTime:
		return e.advanceTime(ctx, draft, in)
	case models.StepContact:
		return e.advanceContact(ctx, draft, in)
	case models.StepVerify:
		return e.advanceVerify(ctx, draft, in)
	case models.StepDone, models.StepAbandoned:
		return draft, ErrFinished
	default:
		return draft, fmt.Errorf("%w: %q", ErrWrongStep, draft.Step)
	}
}

// Back moves the draft to an earlier step without touching collected values;
// re-answering a step with a different value is what invalidates later ones.
func (e *Engine) Back(draft *models.BookingDraft, toStep string) (*models.BookingDraft, error) {
	target, ok := stepOrder[toStep]
	if !ok {
		return draft, fmt.Errorf("%w: %q", ErrInvalidInput, toStep)
	}
	current, ok := stepOrder[draft.Step]
	if !ok || target >= current {
		return draft, fmt.Errorf("%w: cannot go back from %s to %s", ErrWrongStep, draft.Step, toStep)
	}

	next := draft.Clone()
	next.Step = toStep
	next.UpdatedAt = e.now()
	return next, nil
}

// Abandon closes the draft; nothing server-side needs cleanup.
func (e *Engine) Abandon(draft *models.BookingDraft) *models.BookingDraft {
	next := draft.Clone()
	next.Step = models.StepAbandoned
	next.UpdatedAt = e.now()
	return next
}

func (e *Engine) advanceService(ctx context.Context, draft *models.BookingDraft, in Input) (*models.BookingDraft, error) {
	serviceID := in.ServiceID
	if serviceID == 0 {
		serviceID = draft.ServiceID // pre-selected single service
	}
	if serviceID == 0 {
		return draft, fmt.Errorf("%w: service is required", ErrInvalidInput)
	}

	business, err := e.businesses.GetBusinessBySlug(ctx, draft.BusinessSlug)
	if err != nil {
		return draft, err
	}
	svc := business.ServiceByID(serviceID)
	if svc == nil {
		return draft, fmt.Errorf("%w: id %d", database.ErrUnknownService, serviceID)
	}

	next := draft.Clone()
	if next.ServiceID != svc.ID || next.DurationMin != svc.DurationMin {
		// A different service invalidates any previously chosen start time.
		next.StartTime = ""
		next.LastSlots = nil
	}
	next.ServiceID = svc.ID
	next.DurationMin = svc.DurationMin
	next.Step = models.StepDate
	next.UpdatedAt = e.now()
	return next, nil
}

func (e *Engine) advanceDate(ctx context.Context, draft *models.BookingDraft, in Input) (*models.BookingDraft, error) {
	date, err := timeutil.ParseDate(in.Date)
	if err != nil {
		return draft, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if date.Before(timeutil.Midnight(e.now())) {
		return draft, fmt.Errorf("%w: date is in the past", ErrInvalidInput)
	}

	business, err := e.businesses.GetBusinessBySlug(ctx, draft.BusinessSlug)
	if err != nil {
		return draft, err
	}
	if !schedule.NewWeekSchedule(business.Windows, business.Exceptions).IsOpen(date) {
		return draft, fmt.Errorf("%w: no availability on %s", ErrInvalidInput, in.Date)
	}

	// An empty slot list is a valid display state, not a workflow error.
	slots, err := e.slots.AvailableSlots(ctx, draft.BusinessSlug, in.Date, draft.ServiceID)
	if err != nil {
		return draft, err
	}

	next := draft.Clone()
	if next.Date != in.Date {
		next.StartTime = ""
	}
	next.Date = in.Date
	next.LastSlots = slots
	next.Step = models.StepTime
	next.UpdatedAt = e.now()
	return next, nil
}

func (e *Engine) advanceTime(ctx context.Context, draft *models.BookingDraft, in Input) (*models.BookingDraft, error) {
	if in.StartTime == "" {
		return draft, fmt.Errorf("%w: start time is required", ErrInvalidInput)
	}
	if !draft.HasSlot(in.StartTime) {
		return draft, fmt.Errorf("%w: %q is not among the offered slots", ErrInvalidInput, in.StartTime)
	}

	next := draft.Clone()
	next.StartTime = in.StartTime
	next.Step = models.StepContact
	next.UpdatedAt = e.now()
	return next, nil
}

func (e *Engine) advanceContact(ctx context.Context, draft *models.BookingDraft, in Input) (*models.BookingDraft, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return draft, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	phone := strings.TrimSpace(in.Phone)
	if !phonePattern.MatchString(phone) {
		return draft, fmt.Errorf("%w: phone %q is not a valid number", ErrInvalidInput, in.Phone)
	}

	channel := in.Channel
	if channel == "" {
		channel = models.ChannelSMS
	}

	if err := e.gate.Send(ctx, phone, channel); err != nil {
		return draft, err
	}

	next := draft.Clone()
	next.ClientName = name
	next.ClientPhone = phone
	next.Note = strings.TrimSpace(in.Note)
	next.CodeSent = true
	next.Step = models.StepVerify
	next.UpdatedAt = e.now()
	return next, nil
}

func (e *Engine) advanceVerify(ctx context.Context, draft *models.BookingDraft, in Input) (*models.BookingDraft, error) {
	if in.Code == "" {
		return draft, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	if err := e.gate.Verify(ctx, draft.ClientPhone, in.Code); err != nil {
		// Expired or mismatched codes keep the client on this step.
		return draft, err
	}

	business, err := e.businesses.GetBusinessBySlug(ctx, draft.BusinessSlug)
	if err != nil {
		return draft, err
	}
	svc := business.ServiceByID(draft.ServiceID)
	if svc == nil {
		return draft, fmt.Errorf("%w: id %d", database.ErrUnknownService, draft.ServiceID)
	}
	date, err := timeutil.ParseDate(draft.Date)
	if err != nil {
		return draft, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	startMin, err := timeutil.ToMinutes(draft.StartTime)
	if err != nil {
		return draft, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	booking := &models.Booking{
		BusinessID:  business.ID,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Date:        date,
		StartMin:    startMin,
		DurationMin: draft.DurationMin,
		ClientName:  draft.ClientName,
		ClientPhone: draft.ClientPhone,
		Note:        draft.Note,
	}

	err = e.bookings.Commit(ctx, booking)
	if errors.Is(err, database.ErrSlotTaken) {
		// Someone took the slot between selection and commit. Send the
		// client back to pick again from fresh slots; never retry silently.
		next := draft.Clone()
		next.Step = models.StepTime
		next.StartTime = ""
		if slots, slotsErr := e.slots.AvailableSlots(ctx, draft.BusinessSlug, draft.Date, draft.ServiceID); slotsErr == nil {
			next.LastSlots = slots
		}
		next.UpdatedAt = e.now()
		e.logger.Warn().Str("session", draft.SessionID).Str("date", draft.Date).
			Str("start", draft.StartTime).Msg("slot taken at commit, returning to time selection")
		return next, err
	}
	if err != nil {
		return draft, err
	}

	next := draft.Clone()
	next.Step = models.StepDone
	next.BookingID = booking.ID
	next.UpdatedAt = e.now()
	e.logger.Info().Str("session", draft.SessionID).Int64("booking_id", booking.ID).Msg("booking committed")
	return next, nil
}
