// Package export renders booking data into Excel workbooks for the business
// owner.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slotnik/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// BookingSource is the slice of the repository the exporter reads.
type BookingSource interface {
	GetBookingsByDateRange(ctx context.Context, businessID int64, start, end time.Time) ([]models.Booking, error)
}

type Exporter struct {
	bookings BookingSource
	dir      string
	logger   *zerolog.Logger
}

func NewExporter(bookings BookingSource, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{bookings: bookings, dir: dir, logger: logger}
}

const sheetName = "Bookings"

var headers = []string{"Date", "Start", "End", "Service", "Client", "Phone", "Status", "Note"}

// ExportBookings writes one row per booking in the range into an xlsx file
// and returns its path.
func (e *Exporter) ExportBookings(ctx context.Context, businessID int64, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	bookings, err := e.bookings.GetBookingsByDateRange(ctx, businessID, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))
	_ = f.MergeCell(sheetName, "A1", "H1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), b.Date.Format(models.DateLayout))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), clock(b.StartMin))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), clock(b.EndMin()))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), b.ServiceName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), b.ClientName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), b.ClientPhone)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), b.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), b.Note)

		if styleID, styleErr := statusStyle(f, b.Status); styleErr == nil {
			cell := fmt.Sprintf("G%d", row)
			_ = f.SetCellStyle(sheetName, cell, cell, styleID)
		}
	}

	widths := map[string]float64{"A": 12, "B": 8, "C": 8, "D": 25, "E": 20, "F": 16, "G": 12, "H": 30}
	for col, w := range widths {
		_ = f.SetColWidth(sheetName, col, col, w)
	}

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Excel file created")
	return filePath, nil
}

// clock formats minutes from midnight; unlike the strict parser it tolerates
// an interval ending exactly at 24:00.
func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// statusStyle colors the status cell: green for kept appointments, yellow for
// pending ones, red for declined and cancelled.
func statusStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		color = "#C6EFCE"
	case models.StatusPending:
		color = "#FFEB9C"
	case models.StatusDeclined, models.StatusCancelled:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}
