package service

import (
	"context"
	"time"

	"slotnik/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetBusinessBySlug(ctx context.Context, slug string) (*models.Business, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *mockRepo) GetBusinessByID(ctx context.Context, id int64) (*models.Business, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *mockRepo) SetBusinesses(businesses []models.Business) {
	m.Called(businesses)
}

func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) CreateBookingGuarded(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status string) error {
	return m.Called(ctx, id, version, status).Error(0)
}

func (m *mockRepo) RescheduleBookingGuarded(ctx context.Context, id, version int64, date time.Time, startMin int) error {
	return m.Called(ctx, id, version, date, startMin).Error(0)
}

func (m *mockRepo) GetDayBookings(ctx context.Context, businessID int64, date time.Time, statuses []string) ([]models.Booking, error) {
	args := m.Called(ctx, businessID, date, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockRepo) GetBookingsByDateRange(ctx context.Context, businessID int64, start, end time.Time) ([]models.Booking, error) {
	args := m.Called(ctx, businessID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockRepo) HasConflict(ctx context.Context, businessID int64, date time.Time, startMin, durationMin int, excludeID int64) (bool, error) {
	args := m.Called(ctx, businessID, date, startMin, durationMin, excludeID)
	return args.Bool(0), args.Error(1)
}

func testBusiness() *models.Business {
	return &models.Business{
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
		Exceptions: []string{"2025-03-17"},
	}
}
