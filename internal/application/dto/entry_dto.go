package dto

import "time"

type EntryDTO struct {
	BaseDTO
	PersonID     int64      `json:"person_id" validate:"required,gt=0"`
	EventID      int64      `json:"event_id" validate:"required,gt=0"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	Notes        string     `json:"notes,omitempty" validate:"max=1000"`
}
