package dto

import "time"

type EventDTO struct {
	BaseDTO
	Name        string     `json:"name" validate:"required,max=120"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	Location    string     `json:"location,omitempty" validate:"max=200"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
}
