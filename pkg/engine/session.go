package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/germanamz/camview/pkg/camera"
	"github.com/germanamz/camview/pkg/devices"
)

var (
	// ErrClosed is returned by Session calls made after Run has returned.
	ErrClosed = errors.New("engine: session is closed")
	// ErrRunning is returned when Run is called twice.
	ErrRunning = errors.New("engine: session is already running")
)

type dispatchReq struct {
	ev    camera.Event
	reply chan *camera.State
}

type rescanReq struct{}

type enumResult struct {
	epoch   uint64
	kind    camera.EnumerationKind
	devices []camera.Device
	err     error
}

// Session owns the camera state. A single goroutine (Run) applies every
// event through camera.Reduce; enumerations run concurrently and come back
// tagged with the epoch of the request that started them, so only the
// newest request can change the camera list.
type Session struct {
	enum      devices.Enumerator
	watcher   devices.Watcher
	persister *persister
	events    *EventBus
	logger    *slog.Logger

	snapshot atomic.Pointer[camera.State]
	running  atomic.Bool
	requests chan any
	done     chan struct{}

	// Owned by the Run goroutine.
	state     *camera.State
	epoch     uint64
	succeeded bool
}

func newSession(seed *camera.State, enum devices.Enumerator, watcher devices.Watcher, p *persister, events *EventBus, logger *slog.Logger) *Session {
	s := &Session{
		enum:      enum,
		watcher:   watcher,
		persister: p,
		events:    events,
		logger:    logger,
		requests:  make(chan any),
		done:      make(chan struct{}),
		state:     seed,
	}
	s.snapshot.Store(seed)
	return s
}

// Snapshot returns the latest state. It is safe to call from any goroutine
// and the returned state must not be modified.
func (s *Session) Snapshot() *camera.State {
	return s.snapshot.Load()
}

// Run starts the initial enumeration and then serves events, device changes
// and enumeration results until ctx is done. Pending persistence is flushed
// before Run returns.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(s.done)

	var wg sync.WaitGroup
	defer wg.Wait()

	// Closed after the loop below has exited, so every state applied by
	// this goroutine has been submitted before the final flush.
	stop := make(chan struct{})
	defer close(stop)

	wg.Go(func() { s.persister.run(ctx, stop) })

	var changes <-chan struct{}
	if s.watcher != nil {
		changes = s.watcher.Watch(ctx)
	}

	results := make(chan enumResult)
	s.enumerate(ctx, &wg, results)

	for {
		select {
		case <-ctx.Done():
			return nil

		case req := <-s.requests:
			switch req := req.(type) {
			case dispatchReq:
				req.reply <- s.apply(ctx, req.ev)
			case rescanReq:
				s.enumerate(ctx, &wg, results)
			}

		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.logger.DebugContext(ctx, "device change detected")
			s.events.Publish(Event{Kind: EventDevicesChanged})
			s.enumerate(ctx, &wg, results)

		case res := <-results:
			s.handleResult(ctx, res)
		}
	}
}

// enumerate issues a new enumeration request. Until one succeeds, requests
// are of the initial kind and re-mark the list as initializing.
func (s *Session) enumerate(ctx context.Context, wg *sync.WaitGroup, results chan<- enumResult) {
	s.epoch++
	kind := camera.Refresh
	if !s.succeeded {
		kind = camera.Initial
		s.apply(ctx, camera.BeginEnumeration{})
	}

	epoch := s.epoch
	s.logger.DebugContext(ctx, "enumeration requested", "kind", kind.String(), "epoch", epoch)

	wg.Go(func() {
		list, err := s.enum.Enumerate(ctx)
		select {
		case results <- enumResult{epoch: epoch, kind: kind, devices: list, err: err}:
		case <-ctx.Done():
		}
	})
}

func (s *Session) handleResult(ctx context.Context, res enumResult) {
	if res.epoch != s.epoch {
		s.logger.DebugContext(ctx, "discarding stale enumeration", "epoch", res.epoch, "latest", s.epoch)
		return
	}

	if res.err != nil {
		s.logger.WarnContext(ctx, "camera enumeration failed", "kind", res.kind.String(), "error", res.err)
		s.events.Publish(Event{Kind: EventEnumerationFailed, Data: res.err})
		return
	}

	s.succeeded = true
	s.logger.InfoContext(ctx, "cameras enumerated", "kind", res.kind.String(), "count", len(res.devices))
	s.apply(ctx, camera.EnumerationSucceeded{Kind: res.kind, Devices: res.devices})
}

// apply runs ev through the reducer and publishes the result when it
// changed anything.
func (s *Session) apply(ctx context.Context, ev camera.Event) *camera.State {
	next := camera.Reduce(s.state, ev)
	if next == s.state {
		return next
	}

	s.state = next
	s.snapshot.Store(next)
	s.persister.submit(next)
	s.events.Publish(Event{Kind: EventStateChanged, Data: next})

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		attrs := []any{"event", fmt.Sprintf("%T", ev), "cameras", len(next.Cameras)}
		if next.CurrentCamera != nil {
			attrs = append(attrs, "current", next.CurrentCamera.ID)
		}
		s.logger.DebugContext(ctx, "state changed", attrs...)
	}

	return next
}

// Dispatch applies ev on the Run goroutine and returns the resulting state.
// Events that change nothing return the unchanged state.
func (s *Session) Dispatch(ctx context.Context, ev camera.Event) (*camera.State, error) {
	reply := make(chan *camera.State, 1)
	if err := s.send(ctx, dispatchReq{ev: ev, reply: reply}); err != nil {
		return nil, err
	}

	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Rescan issues a fresh enumeration. Before the first successful enumeration
// this retries the initial one, e.g. after camera access was granted.
func (s *Session) Rescan(ctx context.Context) error {
	return s.send(ctx, rescanReq{})
}

func (s *Session) send(ctx context.Context, req any) error {
	select {
	case s.requests <- req:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Select makes the camera with the given id current.
func (s *Session) Select(ctx context.Context, id string) (*camera.State, error) {
	return s.Dispatch(ctx, camera.SelectCamera{ID: id})
}

// Toggle flips whether the camera with the given id is enabled.
func (s *Session) Toggle(ctx context.Context, id string) (*camera.State, error) {
	return s.Dispatch(ctx, camera.ToggleCamera{ID: id})
}

// Rotate turns the current camera a quarter turn.
func (s *Session) Rotate(ctx context.Context, dir camera.Direction) (*camera.State, error) {
	return s.Dispatch(ctx, camera.RotateCamera{Direction: dir})
}

// Zoom changes the current camera's zoom by step.
func (s *Session) Zoom(ctx context.Context, step float64) (*camera.State, error) {
	return s.Dispatch(ctx, camera.ZoomCamera{Step: step})
}

// ResetZoom returns the current camera to 1x zoom.
func (s *Session) ResetZoom(ctx context.Context) (*camera.State, error) {
	return s.Dispatch(ctx, camera.ResetZoomCamera{})
}
