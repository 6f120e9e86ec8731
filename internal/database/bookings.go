package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"slotnik/internal/models"
	"slotnik/internal/timeutil"
)

const bookingColumns = `id, business_id, service_id, service_name, date, start_min,
	duration_min, status, client_name, client_phone, note, created_at, updated_at, version`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	var dateStr string
	var note sql.NullString
	err := row.Scan(&b.ID, &b.BusinessID, &b.ServiceID, &b.ServiceName, &dateStr, &b.StartMin,
		&b.DurationMin, &b.Status, &b.ClientName, &b.ClientPhone, &note, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	b.Note = note.String
	b.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse booking date %q: %w", dateStr, err)
	}
	return &b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	now := time.Now()
	query := `INSERT INTO bookings (
				business_id, service_id, service_name, date, start_min, duration_min,
				status, client_name, client_phone, note, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.db.ExecContext(ctx, query,
		booking.BusinessID,
		booking.ServiceID,
		booking.ServiceName,
		booking.Date.Format(models.DateLayout),
		booking.StartMin,
		booking.DurationMin,
		booking.Status,
		booking.ClientName,
		booking.ClientPhone,
		booking.Note,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// CreateBookingGuarded re-checks the slot inside a transaction before
// inserting. This is the single point where the shown-free-but-taken race is
// resolved; client-cached availability is never trusted here.
func (db *DB) CreateBookingGuarded(ctx context.Context, booking *models.Booking) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	taken, err := hasConflictTx(ctx, tx, booking.BusinessID, booking.Date, booking.StartMin, booking.DurationMin, 0)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlotTaken
	}

	now := time.Now()
	query := `INSERT INTO bookings (
				business_id, service_id, service_name, date, start_min, duration_min,
				status, client_name, client_phone, note, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, query,
		booking.BusinessID,
		booking.ServiceID,
		booking.ServiceName,
		booking.Date.Format(models.DateLayout),
		booking.StartMin,
		booking.DurationMin,
		booking.Status,
		booking.ClientName,
		booking.ClientPhone,
		booking.Note,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return tx.Commit()
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id int64, version int64, status string) error {
	query := `UPDATE bookings SET status = ?, updated_at = ?, version = version + 1
	          WHERE id = ? AND version = ?`
	result, err := db.db.ExecContext(ctx, query, status, time.Now(), id, version)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := db.GetBooking(ctx, id); err != nil {
			return err
		}
		return ErrVersionMismatch
	}
	return nil
}

// RescheduleBookingGuarded moves a booking to a new date/start, re-checking
// conflicts in the same transaction with the booking itself excluded.
func (db *DB) RescheduleBookingGuarded(ctx context.Context, id int64, version int64, date time.Time, startMin int) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var businessID int64
	var durationMin int
	err = tx.QueryRowContext(ctx, `SELECT business_id, duration_min FROM bookings WHERE id = ?`, id).
		Scan(&businessID, &durationMin)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}

	taken, err := hasConflictTx(ctx, tx, businessID, date, startMin, durationMin, id)
	if err != nil {
		return err
	}
	if taken {
		return ErrSlotTaken
	}

	query := `UPDATE bookings SET date = ?, start_min = ?, updated_at = ?, version = version + 1
	          WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query, date.Format(models.DateLayout), startMin, time.Now(), id, version)
	if err != nil {
		return fmt.Errorf("reschedule booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionMismatch
	}
	return tx.Commit()
}

// HasConflict reports whether a candidate interval overlaps any blocking
// booking for the business on the date. excludeID skips one booking, used
// when editing it.
func (db *DB) HasConflict(ctx context.Context, businessID int64, date time.Time, startMin, durationMin int, excludeID int64) (bool, error) {
	bookings, err := db.GetDayBookings(ctx, businessID, date, models.BlockingStatuses())
	if err != nil {
		return false, err
	}
	for i := range bookings {
		b := &bookings[i]
		if b.ID == excludeID {
			continue
		}
		if timeutil.Overlaps(startMin, durationMin, b.StartMin, b.DurationMin) {
			return true, nil
		}
	}
	return false, nil
}

func hasConflictTx(ctx context.Context, tx *sql.Tx, businessID int64, date time.Time, startMin, durationMin int, excludeID int64) (bool, error) {
	query := `SELECT start_min, duration_min FROM bookings
	          WHERE business_id = ? AND date = ? AND status IN (?, ?) AND id != ?`
	rows, err := tx.QueryContext(ctx, query, businessID, date.Format(models.DateLayout),
		models.StatusPending, models.StatusConfirmed, excludeID)
	if err != nil {
		return false, fmt.Errorf("check conflicts in tx: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var start, dur int
		if err := rows.Scan(&start, &dur); err != nil {
			return false, fmt.Errorf("scan conflict row: %w", err)
		}
		if timeutil.Overlaps(startMin, durationMin, start, dur) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// GetDayBookings returns a business's bookings for one date, optionally
// filtered by status, ordered by start time.
func (db *DB) GetDayBookings(ctx context.Context, businessID int64, date time.Time, statuses []string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE business_id = ? AND date = ?`
	args := []any{businessID, date.Format(models.DateLayout)}

	if len(statuses) > 0 {
		query += ` AND status IN (?` + strings.Repeat(", ?", len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	query += ` ORDER BY start_min, id`

	return db.queryBookings(ctx, query, args...)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, businessID int64, start, end time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE business_id = ? AND date >= ? AND date <= ?
	          ORDER BY date, start_min, id`
	return db.queryBookings(ctx, query,
		businessID, start.Format(models.DateLayout), end.Format(models.DateLayout))
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
