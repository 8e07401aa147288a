package crud

import (
	"context"
	"time"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ChangeEvent is published after every successful write.
type ChangeEvent struct {
	Resource   string    `json:"resource"`
	Action     string    `json:"action"`
	ID         int64     `json:"id"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// Publisher delivers change events; helpers.RabbitPublisher implements it.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Cache stores DTOs by key; helpers.RedisCache implements it. Every Delete
// bumps the key's version, and SetIfVersion stores nothing once the version
// moved past the one read before loading the value.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Version(ctx context.Context, key string) (int64, error)
	SetIfVersion(ctx context.Context, key string, version int64, value any) (bool, error)
	Delete(ctx context.Context, key string) error
}
