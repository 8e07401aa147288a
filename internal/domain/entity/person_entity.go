package entity

import "time"

// Person is someone who can register entries for events.
type Person struct {
	BaseEntity
	Name      string
	Email     string
	Document  string
	Phone     string
	BirthDate *time.Time
	PhotoURL  string
}
