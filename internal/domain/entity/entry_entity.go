package entity

import "time"

// Entry registers a Person for an Event.
type Entry struct {
	BaseEntity
	PersonID     int64
	EventID      int64
	RegisteredAt time.Time
	CheckedInAt  *time.Time
	Notes        string
}
