package entity

import "time"

// BaseEntity holds the persistence identity shared by every stored record.
// ID stays zero until the record has been saved for the first time.
type BaseEntity struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *BaseEntity) GetID() int64   { return b.ID }
func (b *BaseEntity) SetID(id int64) { b.ID = id }
func (b *BaseEntity) IsNew() bool    { return b.ID == 0 }

// Base exposes the embedded identity for storage code that scans into it.
func (b *BaseEntity) Base() *BaseEntity { return b }

// Touch stamps the record as written at now.
func (b *BaseEntity) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Record is satisfied by pointers to any struct embedding BaseEntity.
// Generic repositories use it to reach the identity of E through *E.
type Record[E any] interface {
	*E
	GetID() int64
	SetID(id int64)
	IsNew() bool
	Base() *BaseEntity
	Touch(now time.Time)
}
