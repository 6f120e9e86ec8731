package models

// BookingLayout places one booking into a rendering lane so that concurrent
// bookings display side by side on the day calendar.
type BookingLayout struct {
	BookingID    int64   `json:"booking_id"`
	Column       int     `json:"column"`
	TotalColumns int     `json:"total_columns"`
	LeftPct      float64 `json:"left_pct"`
	WidthPct     float64 `json:"width_pct"`
}
