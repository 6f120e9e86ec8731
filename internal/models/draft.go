package models

import "time"

// BookingDraft is the transient, session-scoped state of one client walking
// through the booking steps. It is a plain value: workflow transitions take a
// draft in and hand an updated copy back, nothing mutates it in place. A draft
// is discarded on commit or abandonment and is never written to the bookings
// store.
type BookingDraft struct {
	SessionID    string    `json:"session_id"`
	BusinessSlug string    `json:"business_slug"`
	Step         string    `json:"step"`
	ServiceID    int64     `json:"service_id"`
	DurationMin  int       `json:"duration_min"`
	Date         string    `json:"date"`       // DateLayout, empty until chosen
	StartTime    string    `json:"start_time"` // "HH:MM", empty until chosen
	LastSlots    []string  `json:"last_slots"` // most recent slot fetch shown to the client
	ClientName   string    `json:"client_name"`
	ClientPhone  string    `json:"client_phone"`
	Note         string    `json:"note"`
	CodeSent     bool      `json:"code_sent"`
	BookingID    int64     `json:"booking_id"` // set once committed
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasSlot reports whether t was present in the slots last shown to the client.
func (d *BookingDraft) HasSlot(t string) bool {
	for _, s := range d.LastSlots {
		if s == t {
			return true
		}
	}
	return false
}

// Clone returns a copy safe to mutate without touching the receiver.
func (d *BookingDraft) Clone() *BookingDraft {
	c := *d
	c.LastSlots = append([]string(nil), d.LastSlots...)
	return &c
}
