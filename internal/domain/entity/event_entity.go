package entity

import "time"

type Event struct {
	BaseEntity
	Name        string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
}
