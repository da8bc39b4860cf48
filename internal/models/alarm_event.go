package models

import "time"

// AlarmEvent is one row of the durable alarm log. At most one row with
// Active=true exists per (Tag, Name) pair at any time; the repository
// enforces this on insert.
type AlarmEvent struct {
	EventID      string     `json:"id"`
	Tag          string     `json:"tag"`
	Name         string     `json:"name"`
	Severity     int        `json:"severity"`
	Active       bool       `json:"active"`
	TimestampIn  time.Time  `json:"timestampIn"`
	TimestampOut *time.Time `json:"timestampOut,omitempty"`
	Ack          bool       `json:"ack"`
	AckUser      *string    `json:"ackUser,omitempty"`
	AckTimestamp *time.Time `json:"ackTimestamp,omitempty"`
	Message      *string    `json:"message,omitempty"`
	Source       *string    `json:"source,omitempty"`
}
