package database

import (
	"context"
	"io"
	"testing"
	"time"

	"slotnik/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetBusinesses([]models.Business{
		{
			ID:   1,
			Slug: "studio",
			Name: "Studio",
			Services: []models.Service{
				{ID: 10, Name: "Consultation", DurationMin: 60, IsActive: true},
				{ID: 11, Name: "Follow-up", DurationMin: 30, IsActive: true},
			},
			Windows: []models.TimeWindow{
				{Weekday: 1, Start: "09:00", End: "17:00", Active: true},
			},
		},
	})
	return db
}

func testBooking(start, dur int) *models.Booking {
	return &models.Booking{
		BusinessID:  1,
		ServiceID:   10,
		ServiceName: "Consultation",
		Date:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		StartMin:    start,
		DurationMin: dur,
		Status:      models.StatusPending,
		ClientName:  "Anna",
		ClientPhone: "+15550100",
	}
}

func TestBusinessLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b, err := db.GetBusinessBySlug(ctx, "studio")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), b.ID)
	assert.NotNil(t, b.ServiceByID(10))
	assert.Nil(t, b.ServiceByID(99))

	_, err = db.GetBusinessBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownBusiness)

	_, err = db.GetBusinessByID(ctx, 42)
	assert.ErrorIs(t, err, ErrUnknownBusiness)
}

func TestCreateAndGetBooking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(600, 60)
	require.NoError(t, db.CreateBooking(ctx, b))
	assert.NotZero(t, b.ID)
	assert.Equal(t, int64(1), b.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 600, got.StartMin)
	assert.Equal(t, "2025-03-10", got.Date.Format(models.DateLayout))
	assert.Equal(t, models.StatusPending, got.Status)

	_, err = db.GetBooking(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBookingGuarded_Conflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingGuarded(ctx, testBooking(600, 60)))

	// Overlapping interval is rejected.
	err := db.CreateBookingGuarded(ctx, testBooking(630, 60))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Touching intervals are fine.
	assert.NoError(t, db.CreateBookingGuarded(ctx, testBooking(660, 60)))
	assert.NoError(t, db.CreateBookingGuarded(ctx, testBooking(540, 60)))
}

func TestCreateBookingGuarded_CancelledDoesNotBlock(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(600, 60)
	require.NoError(t, db.CreateBookingGuarded(ctx, b))
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.StatusCancelled))

	assert.NoError(t, db.CreateBookingGuarded(ctx, testBooking(600, 60)))
}

func TestUpdateBookingStatusWithVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(600, 60)
	require.NoError(t, db.CreateBooking(ctx, b))

	assert.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusConfirmed))

	// Stale version.
	err := db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrVersionMismatch)

	// Unknown id.
	err = db.UpdateBookingStatusWithVersion(ctx, 9999, 1, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestHasConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	b := testBooking(600, 60)
	require.NoError(t, db.CreateBooking(ctx, b))

	conflict, err := db.HasConflict(ctx, 1, date, 630, 60, 0)
	assert.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = db.HasConflict(ctx, 1, date, 660, 60, 0)
	assert.NoError(t, err)
	assert.False(t, conflict)

	// Excluding the booking itself, as happens on edit.
	conflict, err = db.HasConflict(ctx, 1, date, 630, 60, b.ID)
	assert.NoError(t, err)
	assert.False(t, conflict)

	// Другой бизнес не конфликтует.
	conflict, err = db.HasConflict(ctx, 2, date, 630, 60, 0)
	assert.NoError(t, err)
	assert.False(t, conflict)
}

func TestRescheduleBookingGuarded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	b := testBooking(600, 60)
	require.NoError(t, db.CreateBooking(ctx, b))
	other := testBooking(840, 60)
	require.NoError(t, db.CreateBooking(ctx, other))

	// Move onto the other booking: conflict.
	err := db.RescheduleBookingGuarded(ctx, b.ID, b.Version, date, 870)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Move to a free slot.
	require.NoError(t, db.RescheduleBookingGuarded(ctx, b.ID, b.Version, date, 720))
	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 720, got.StartMin)
	assert.Equal(t, int64(2), got.Version)

	// Stale version after the successful move.
	err = db.RescheduleBookingGuarded(ctx, b.ID, 1, date, 960)
	assert.ErrorIs(t, err, ErrVersionMismatch)

	err = db.RescheduleBookingGuarded(ctx, 9999, 1, date, 960)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDayBookingsAndRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	first := testBooking(720, 30)
	second := testBooking(540, 60)
	third := testBooking(600, 30)
	third.Status = models.StatusCancelled
	for _, b := range []*models.Booking{first, second, third} {
		require.NoError(t, db.CreateBooking(ctx, b))
	}
	nextDay := testBooking(540, 60)
	nextDay.Date = date.AddDate(0, 0, 1)
	require.NoError(t, db.CreateBooking(ctx, nextDay))

	day, err := db.GetDayBookings(ctx, 1, date, models.BlockingStatuses())
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, 540, day[0].StartMin) // sorted by start
	assert.Equal(t, 720, day[1].StartMin)

	all, err := db.GetDayBookings(ctx, 1, date, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ranged, err := db.GetBookingsByDateRange(ctx, 1, date, date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, ranged, 4)
}
