package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
)

// ConnState is the bridge's subscription lifecycle, surfaced so the UI
// can render a live/offline indicator.
type ConnState string

const (
	StateConnecting ConnState = "connecting"
	StateSubscribed ConnState = "subscribed"
	StateError      ConnState = "error"
	StateTimedOut   ConnState = "timed_out"
	StateClosed     ConnState = "closed"
)

// Bridge subscribes to the idea change stream and drops the dependent
// cached views so they recompute from the store on next read. Delivery
// is at-least-once; invalidation is idempotent, so duplicates and
// reordering are harmless.
type Bridge struct {
	log   *logger.Logger
	bus   Bus
	cache *ViewCache

	mu    sync.Mutex
	state ConnState
}

func NewBridge(baseLog *logger.Logger, bus Bus, cache *ViewCache) *Bridge {
	return &Bridge{
		log:   baseLog.With("service", "RealtimeBridge"),
		bus:   bus,
		cache: cache,
		state: StateConnecting,
	}
}

// Start subscribes to the change stream. Callers re-invoke Start after
// a restart rather than assuming one long-lived subscription.
func (b *Bridge) Start(ctx context.Context) error {
	b.setState(StateConnecting)
	err := b.bus.StartForwarder(ctx, b.onEvent)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			b.setState(StateTimedOut)
		} else {
			b.setState(StateError)
		}
		return err
	}
	b.setState(StateSubscribed)

	go func() {
		<-ctx.Done()
		b.setState(StateClosed)
	}()
	return nil
}

func (b *Bridge) onEvent(ev Event) {
	switch ev.Resource {
	case ResourceIdea:
		b.cache.Invalidate(IdeaViews...)
		b.log.Debug("idea views invalidated", "op", ev.Op)
	case ResourcePrototype:
		// Prototype reads are uncached; nothing to drop.
	default:
		b.log.Debug("ignoring event for unknown resource", "resource", ev.Resource)
	}
}

func (b *Bridge) State() ConnState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) setState(s ConnState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}
