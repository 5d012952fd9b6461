package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/germanamz/camview/pkg/devices"
	"github.com/germanamz/camview/pkg/kvstore"
	"github.com/germanamz/camview/pkg/persist"
)

// Options overrides the parts New would otherwise build from Config.
type Options struct {
	Logger     *slog.Logger
	Store      kvstore.Store // Not closed by Engine.Close when supplied.
	Enumerator devices.Enumerator
	Watcher    devices.Watcher
	NoWatch    bool // Disable device change detection entirely.
}

// Engine is the composition root that assembles the store, device source,
// change watcher and session from configuration and exposes them through a
// frontend-agnostic API.
type Engine struct {
	cfg       Config
	events    *EventBus
	store     kvstore.Store
	ownsStore bool
	session   *Session
	logger    *slog.Logger
}

// New creates an Engine from the given configuration. It validates the
// config, opens the store, revives the persisted record and builds the
// device source. Persisted data that cannot be read is logged and treated as
// no prior state.
func New(ctx context.Context, cfg Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:    cfg,
		events: NewEventBus(),
		store:  opts.Store,
		logger: logger,
	}

	if e.store == nil {
		kind := kvstore.Kind(cfg.Store.Kind)
		if kind == "" {
			kind = kvstore.KindMemory
		}
		store, err := kvstore.Open(kind, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("engine: store: %w", err)
		}
		e.store = store
		e.ownsStore = true
	}

	rec, err := persist.Load(ctx, e.store)
	switch {
	case errors.Is(err, persist.ErrCorruptRecord):
		logger.WarnContext(ctx, "ignoring corrupt camera settings", "error", err)
	case err != nil:
		logger.ErrorContext(ctx, "loading camera settings failed", "error", err)
		rec = persist.Project(nil)
	}

	enum := opts.Enumerator
	if enum == nil {
		enum, err = buildEnumerator(cfg.Devices)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
	}

	watcher := opts.Watcher
	if watcher == nil && !opts.NoWatch {
		interval, err := cfg.Devices.PollIntervalDuration()
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		if interval > 0 {
			watcher = devices.PollWatcher{Enumerator: enum, Interval: interval, Logger: logger}
		}
	}

	p := newPersister(e.store, rec, e.events, logger)
	e.session = newSession(persist.Seed(rec), enum, watcher, p, e.events, logger)

	logger.InfoContext(ctx, "engine ready",
		"store", cmp.Or(cfg.Store.Kind, string(kvstore.KindMemory)),
		"source", cmp.Or(cfg.Devices.Source, SourceSysfs),
		"last_used", rec.LastUsedCamera,
	)

	return e, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() Config { return e.cfg }

// Logger returns the logger the engine writes to.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Events returns the engine's event bus.
func (e *Engine) Events() *EventBus { return e.events }

// Session returns the camera session.
func (e *Engine) Session() *Session { return e.session }

// Run drives the session until ctx is done.
func (e *Engine) Run(ctx context.Context) error { return e.session.Run(ctx) }

// Close releases the store if the engine opened it. Call it after Run has
// returned so the final write is not lost.
func (e *Engine) Close() error {
	if !e.ownsStore || e.store == nil {
		return nil
	}
	return e.store.Close()
}
