package realtime

import (
	"context"
	"time"
)

// Event is a coarse change notification: which resource changed and
// how. No payload diff is carried — consumers recompute from the store.
type Event struct {
	Resource   string    `json:"resource"`
	Op         string    `json:"op"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	ResourceIdea      = "idea"
	ResourcePrototype = "prototype"

	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Bus carries change events between the mutation path and any number
// of subscribers. Delivery is at-least-once; handlers must be
// idempotent.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	StartForwarder(ctx context.Context, onEvent func(ev Event)) error
	Close() error
}
