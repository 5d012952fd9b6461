package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/camview/pkg/engine"
)

// startBridge launches the event watcher goroutine. It only calls p.Send()
// and never touches model state directly. The returned cancel function
// cancels the bridge context and waits for the goroutine to exit, ensuring no
// stale messages are sent after return.
func startBridge(ctx context.Context, p *tea.Program, events *engine.EventBus) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	sub := events.Subscribe(64)

	wg.Go(func() {
		defer events.Unsubscribe(sub)
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if msg := bridgeMsg(ev); msg != nil {
					p.Send(msg)
				}
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}

// bridgeMsg converts an engine event to a bubbletea message.
func bridgeMsg(ev engine.Event) tea.Msg {
	switch ev.Kind {
	case engine.EventStateChanged:
		return stateChangedMsg{}
	case engine.EventDevicesChanged:
		return devicesChangedMsg{}
	case engine.EventEnumerationFailed:
		err, _ := ev.Data.(error)
		return enumerationFailedMsg{err: err}
	case engine.EventPersistFailed:
		err, _ := ev.Data.(error)
		return persistFailedMsg{err: err}
	}
	return nil
}

// followFeed calls notify for every state change until ctx is done.
func followFeed(ctx context.Context, events *engine.EventBus, notify func()) {
	sub := events.Subscribe(16)
	defer events.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.Kind == engine.EventStateChanged {
				notify()
			}
		}
	}
}
