package export

import (
	"context"
	"io"
	"testing"
	"time"

	"slotnik/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubBookings struct {
	bookings []models.Booking
}

func (s *stubBookings) GetBookingsByDateRange(_ context.Context, _ int64, _, _ time.Time) ([]models.Booking, error) {
	return s.bookings, nil
}

func TestExportBookings(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	source := &stubBookings{bookings: []models.Booking{
		{
			ID: 1, BusinessID: 1, ServiceName: "Consultation",
			Date: day, StartMin: 600, DurationMin: 60,
			ClientName: "Anna", ClientPhone: "+79991234567",
			Status: models.StatusConfirmed,
		},
		{
			ID: 2, BusinessID: 1, ServiceName: "Follow-up",
			Date: day, StartMin: 840, DurationMin: 30,
			ClientName: "Boris", ClientPhone: "+79997654321",
			Status: models.StatusPending, Note: "first visit",
		},
	}}

	logger := zerolog.New(io.Discard)
	exporter := NewExporter(source, t.TempDir(), &logger)

	path, err := exporter.ExportBookings(context.Background(), 1, day, day.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.FileExists(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got := func(cell string) string {
		v, cellErr := f.GetCellValue("Bookings", cell)
		require.NoError(t, cellErr)
		return v
	}
	assert.Equal(t, "Date", got("A2"))
	assert.Equal(t, "2025-03-10", got("A3"))
	assert.Equal(t, "10:00", got("B3"))
	assert.Equal(t, "11:00", got("C3"))
	assert.Equal(t, "Anna", got("E3"))
	assert.Equal(t, models.StatusConfirmed, got("G3"))
	assert.Equal(t, "14:00", got("B4"))
	assert.Equal(t, "14:30", got("C4"))
	assert.Equal(t, "first visit", got("H4"))
}

func TestExportEmptyRangeStillWritesFile(t *testing.T) {
	logger := zerolog.New(io.Discard)
	exporter := NewExporter(&stubBookings{}, t.TempDir(), &logger)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	path, err := exporter.ExportBookings(context.Background(), 1, day, day)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
