package dto

import "time"

// BaseDTO mirrors entity.BaseEntity on the wire. A nil ID marks a DTO that
// has not been persisted yet; Update requires it to be set.
type BaseDTO struct {
	ID        *int64     `json:"id"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (b BaseDTO) GetID() *int64 { return b.ID }

// Identified is implemented by every DTO through BaseDTO.
type Identified interface {
	GetID() *int64
}

// NewBaseDTO fills the identity part of a DTO from persisted values.
func NewBaseDTO(id int64, createdAt, updatedAt time.Time) BaseDTO {
	out := BaseDTO{ID: &id}
	if !createdAt.IsZero() {
		c := createdAt
		out.CreatedAt = &c
	}
	if !updatedAt.IsZero() {
		u := updatedAt
		out.UpdatedAt = &u
	}
	return out
}
