package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/germanamz/camview/pkg/camera"
	"github.com/germanamz/camview/pkg/persist"
)

// persister writes the durable projection of the latest submitted state in
// the background. Submissions made while a write is in flight collapse into
// one follow-up write of the newest state.
type persister struct {
	store  persist.Store
	events *EventBus
	logger *slog.Logger

	mu      sync.Mutex
	pending *camera.State
	last    persist.Record
	wake    chan struct{}
}

func newPersister(store persist.Store, saved persist.Record, events *EventBus, logger *slog.Logger) *persister {
	return &persister{
		store:  store,
		events: events,
		logger: logger,
		last:   saved,
		wake:   make(chan struct{}, 1),
	}
}

// submit records s as the newest state to persist. It never blocks.
func (p *persister) submit(s *camera.State) {
	p.mu.Lock()
	p.pending = s
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run writes submissions until stop is closed, then flushes whatever is
// still pending. Writes ignore cancellation of ctx so that the last state
// reaches the store during shutdown; stop is closed by the owner once no
// further submissions can happen.
func (p *persister) run(ctx context.Context, stop <-chan struct{}) {
	ctx = context.WithoutCancel(ctx)
	for {
		select {
		case <-stop:
			p.flush(ctx)
			return
		case <-p.wake:
			p.flush(ctx)
		}
	}
}

func (p *persister) flush(ctx context.Context) {
	p.mu.Lock()
	s := p.pending
	p.pending = nil
	p.mu.Unlock()

	if s == nil {
		return
	}

	rec := persist.Project(s)
	if persist.Equal(p.last, rec) {
		return
	}

	data, err := persist.Encode(rec)
	if err == nil {
		err = p.store.Set(ctx, persist.Key, data)
	}
	if err != nil {
		err = fmt.Errorf("engine: persist: %w", err)
		p.logger.ErrorContext(ctx, "persisting camera settings failed", "error", err)
		p.events.Publish(Event{Kind: EventPersistFailed, Data: err})
		return
	}

	p.last = rec
	p.logger.DebugContext(ctx, "camera settings persisted",
		"last_used", rec.LastUsedCamera,
		"disabled", len(rec.DisabledCameras),
		"settings", len(rec.CameraSettings),
	)
}
