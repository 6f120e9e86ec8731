package models

import "time"

type Booking struct {
	ID          int64     `json:"id"`
	BusinessID  int64     `json:"business_id"`
	ServiceID   int64     `json:"service_id"`
	ServiceName string    `json:"service_name"`
	Date        time.Time `json:"date"`
	StartMin    int       `json:"start_min"`
	DurationMin int       `json:"duration_min"`
	Status      string    `json:"status"` // pending, confirmed, declined, cancelled, completed
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// EndMin is the exclusive end of the booked interval in minutes from midnight.
func (b *Booking) EndMin() int {
	return b.StartMin + b.DurationMin
}

// Blocks reports whether the booking occupies its slot for conflict purposes.
func (b *Booking) Blocks() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// BlockingStatuses lists the statuses that occupy a slot.
func BlockingStatuses() []string {
	return []string{StatusPending, StatusConfirmed}
}
