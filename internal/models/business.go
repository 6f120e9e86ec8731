package models

import "time"

// TimeWindow is a recurring weekly open interval. Weekday follows time.Weekday
// (0 = Sunday). Start and End are local wall-clock values in "HH:MM" form.
type TimeWindow struct {
	Weekday int    `yaml:"weekday" json:"weekday"`
	Start   string `yaml:"start" json:"start"`
	End     string `yaml:"end" json:"end"`
	Active  bool   `yaml:"active" json:"active"`
}

// Service is a bookable service offered by a business.
type Service struct {
	ID          int64  `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	DurationMin int    `yaml:"duration_min" json:"duration_min"`
	SortOrder   int64  `yaml:"sort_order" json:"sort_order"`
	IsActive    bool   `yaml:"is_active" json:"is_active"`
}

// Business holds the read-only schedule data the engine consumes. It is owned
// and edited by the management surface; the engine only reads it.
type Business struct {
	ID         int64        `yaml:"id" json:"id"`
	Slug       string       `yaml:"slug" json:"slug"`
	Name       string       `yaml:"name" json:"name"`
	Services   []Service    `yaml:"services" json:"services"`
	Windows    []TimeWindow `yaml:"windows" json:"windows"`
	Exceptions []string     `yaml:"exceptions" json:"exceptions"` // blocked dates, DateLayout
}

// ServiceByID returns the active service with the given id, or nil.
func (b *Business) ServiceByID(id int64) *Service {
	for i := range b.Services {
		if b.Services[i].ID == id && b.Services[i].IsActive {
			return &b.Services[i]
		}
	}
	return nil
}

// ActiveServices returns the bookable services in sort order as configured.
func (b *Business) ActiveServices() []Service {
	out := make([]Service, 0, len(b.Services))
	for _, s := range b.Services {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

// VerificationCode is a one-time numeric code bound to a phone number.
// At most one live code exists per phone; issuing a new one replaces it.
type VerificationCode struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	Channel   string    `json:"channel"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
}
