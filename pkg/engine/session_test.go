package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/camview/pkg/camera"
	"github.com/germanamz/camview/pkg/devices"
	"github.com/germanamz/camview/pkg/kvstore"
	"github.com/germanamz/camview/pkg/persist"
)

// scriptedEnumerator returns queued results in order, repeating the last
// one. A result with a gate blocks until the gate is closed.
type scriptedEnumerator struct {
	mu      sync.Mutex
	results []scripted
	calls   atomic.Int32
}

type scripted struct {
	list []camera.Device
	err  error
	gate chan struct{}
}

func (e *scriptedEnumerator) push(r scripted) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = append(e.results, r)
}

func (e *scriptedEnumerator) Enumerate(ctx context.Context) ([]camera.Device, error) {
	e.calls.Add(1)

	e.mu.Lock()
	r := e.results[0]
	if len(e.results) > 1 {
		e.results = e.results[1:]
	}
	e.mu.Unlock()

	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.list, r.err
}

type chanWatcher chan struct{}

func (w chanWatcher) Watch(ctx context.Context) <-chan struct{} { return w }

// countingStore counts writes and can be made to fail.
type countingStore struct {
	*kvstore.Memory
	sets   atomic.Int32
	setErr error
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.sets.Add(1)
	if s.setErr != nil {
		return s.setErr
	}
	return s.Memory.Set(ctx, key, value)
}

var twoDevices = []camera.Device{{ID: "id-1", Label: "camera-1"}, {ID: "id-2", Label: "camera-2"}}

type harness struct {
	eng    *Engine
	sess   *Session
	store  *countingStore
	sub    *Subscription
	cancel context.CancelFunc
	done   chan error
}

func startHarness(t *testing.T, enum devices.Enumerator, opts Options, seed *persist.Record) *harness {
	t.Helper()

	store := &countingStore{Memory: kvstore.NewMemory()}
	if seed != nil {
		data, err := persist.Encode(*seed)
		require.NoError(t, err)
		require.NoError(t, store.Memory.Set(context.Background(), persist.Key, data))
	}

	opts.Store = store
	opts.Enumerator = enum
	if opts.Watcher == nil {
		opts.NoWatch = true
	}

	eng, err := New(context.Background(), Config{}, opts)
	require.NoError(t, err)

	h := &harness{eng: eng, sess: eng.Session(), store: store, sub: eng.Events().Subscribe(64), done: make(chan error, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- eng.Run(ctx) }()

	t.Cleanup(func() {
		h.stop(t)
		_ = eng.Close()
	})
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		require.NoError(t, err)
		h.done <- nil
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}

func (h *harness) waitFor(t *testing.T, cond func(*camera.State) bool) *camera.State {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.sess.Snapshot()) }, 2*time.Second, 5*time.Millisecond)
	return h.sess.Snapshot()
}

func (h *harness) waitEvent(t *testing.T, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.sub.C:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event", kind)
		}
	}
}

// waitPersisted blocks until the store holds want.
func (h *harness) waitPersisted(t *testing.T, want persist.Record) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var prev []byte
	for {
		data, err := h.store.Watch(ctx, persist.Key, prev)
		require.NoError(t, err, "record never reached the store")

		rec, err := persist.Decode(data)
		require.NoError(t, err)
		if persist.Equal(want, rec) {
			return
		}
		prev = data
	}
}

func hasCameras(n int) func(*camera.State) bool {
	return func(s *camera.State) bool { return len(s.Cameras) == n && !s.IsInitializingCameraList }
}

func TestSession_InitialEnumerationRestoresLastUsed(t *testing.T) {
	seed := persist.Record{
		LastUsedCamera:  "id-2",
		DisabledCameras: []string{},
		CameraSettings:  map[string]persist.RecordSettings{"id-2": {Angle: 180, Zoom: 2}},
	}
	h := startHarness(t, devices.Static(twoDevices), Options{}, &seed)

	st := h.waitFor(t, hasCameras(2))

	require.NotNil(t, st.CurrentCamera)
	assert.Equal(t, "id-2", st.CurrentCamera.ID)
	assert.Equal(t, camera.Settings{Angle: 180, Zoom: 2}, st.CameraSettings["id-2"])
}

func TestSession_DispatchAndPersist(t *testing.T) {
	h := startHarness(t, devices.Static(twoDevices), Options{}, nil)
	h.waitFor(t, hasCameras(2))
	ctx := context.Background()

	st, err := h.sess.Select(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", st.CurrentCamera.ID)

	st, err = h.sess.Rotate(ctx, camera.CW)
	require.NoError(t, err)
	assert.Equal(t, 90, st.CameraSettings["id-1"].Angle)

	st, err = h.sess.Zoom(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, camera.MaxZoom, st.CameraSettings["id-1"].Zoom)

	st, err = h.sess.ResetZoom(ctx)
	require.NoError(t, err)
	assert.Equal(t, camera.MinZoom, st.CameraSettings["id-1"].Zoom)

	st, err = h.sess.Toggle(ctx, "id-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"id-2"}, st.DisabledCameras)
	assert.Same(t, st, h.sess.Snapshot())

	h.waitPersisted(t, persist.Project(st))
}

func TestSession_NoOpDispatchReturnsSameState(t *testing.T) {
	h := startHarness(t, devices.Static(twoDevices), Options{}, nil)
	before := h.waitFor(t, hasCameras(2))

	after, err := h.sess.Select(context.Background(), "missing")
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestSession_UnchangedProjectionIsNotWritten(t *testing.T) {
	h := startHarness(t, devices.Static(twoDevices), Options{}, nil)
	h.waitFor(t, hasCameras(2))

	h.stop(t)
	assert.Zero(t, h.store.sets.Load(), "listing cameras does not change the durable record")
}

func TestSession_StaleEnumerationIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	enum := &scriptedEnumerator{}
	enum.push(scripted{list: twoDevices[:1], gate: gate})
	enum.push(scripted{list: twoDevices})

	h := startHarness(t, enum, Options{}, nil)
	require.Eventually(t, func() bool { return enum.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.sess.Rescan(context.Background()))
	h.waitFor(t, hasCameras(2))

	close(gate)
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, h.sess.Snapshot().Cameras, 2, "older request must not overwrite the newer list")
}

func TestSession_PermissionDeniedThenRescan(t *testing.T) {
	enum := &scriptedEnumerator{}
	enum.push(scripted{err: devices.ErrPermissionDenied})
	enum.push(scripted{list: twoDevices})

	seed := persist.Record{LastUsedCamera: "id-1", DisabledCameras: []string{}, CameraSettings: map[string]persist.RecordSettings{}}
	h := startHarness(t, enum, Options{}, &seed)

	ev := h.waitEvent(t, EventEnumerationFailed)
	assert.ErrorIs(t, ev.Data.(error), devices.ErrPermissionDenied)

	st := h.sess.Snapshot()
	assert.True(t, st.IsInitializingCameraList)
	assert.Equal(t, camera.MessageDetecting, camera.ViewOf(st).Message)

	require.NoError(t, h.sess.Rescan(context.Background()))
	st = h.waitFor(t, hasCameras(2))
	require.NotNil(t, st.CurrentCamera)
	assert.Equal(t, "id-1", st.CurrentCamera.ID)
}

func TestSession_DeviceChangeRefreshes(t *testing.T) {
	enum := &scriptedEnumerator{}
	enum.push(scripted{list: twoDevices})
	enum.push(scripted{list: twoDevices[1:]})

	watcher := make(chanWatcher, 1)
	h := startHarness(t, enum, Options{Watcher: watcher}, nil)
	h.waitFor(t, hasCameras(2))

	_, err := h.sess.Select(context.Background(), "id-2")
	require.NoError(t, err)

	watcher <- struct{}{}
	h.waitEvent(t, EventDevicesChanged)

	st := h.waitFor(t, hasCameras(1))
	require.NotNil(t, st.CurrentCamera)
	assert.Equal(t, "id-2", st.CurrentCamera.ID)
}

func TestSession_PersistFailureKeepsState(t *testing.T) {
	h := startHarness(t, devices.Static(twoDevices), Options{}, nil)
	h.store.setErr = errors.New("read-only filesystem")
	h.waitFor(t, hasCameras(2))

	st, err := h.sess.Select(context.Background(), "id-1")
	require.NoError(t, err)

	ev := h.waitEvent(t, EventPersistFailed)
	assert.ErrorContains(t, ev.Data.(error), "read-only filesystem")
	assert.Same(t, st, h.sess.Snapshot())
}

func TestSession_Lifecycle(t *testing.T) {
	h := startHarness(t, devices.Static(twoDevices), Options{}, nil)
	h.waitFor(t, hasCameras(2))

	assert.ErrorIs(t, h.sess.Run(context.Background()), ErrRunning)

	h.stop(t)

	_, err := h.sess.Select(context.Background(), "id-1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, h.sess.Rescan(context.Background()), ErrClosed)
}

func TestSession_DispatchHonoursContext(t *testing.T) {
	eng, err := New(context.Background(), Config{}, Options{Enumerator: devices.Static(nil), NoWatch: true})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = eng.Session().Select(ctx, "id-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSession_ShutdownRightAfterDispatchPersists(t *testing.T) {
	for i := range 50 {
		store := kvstore.NewMemory()
		eng, err := New(context.Background(), Config{}, Options{Store: store, Enumerator: devices.Static(twoDevices), NoWatch: true})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- eng.Run(ctx) }()

		require.Eventually(t, func() bool { return len(eng.Session().Snapshot().Cameras) == 2 }, 2*time.Second, time.Millisecond)

		st, err := eng.Session().Select(context.Background(), "id-2")
		require.NoError(t, err)
		cancel()
		require.NoError(t, <-done)

		rec, err := persist.Load(context.Background(), store)
		require.NoError(t, err)
		require.True(t, persist.Equal(persist.Project(st), rec), "iteration %d: acknowledged state not persisted", i)
	}
}

// blockingStore holds its first write until release is closed or the write
// context ends.
type blockingStore struct {
	*kvstore.Memory
	entered chan context.Context
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) Set(ctx context.Context, key string, value []byte) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		s.entered <- ctx
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.Memory.Set(ctx, key, value)
}

func TestSession_CancelDuringWriteKeepsLatestState(t *testing.T) {
	store := &blockingStore{Memory: kvstore.NewMemory(), entered: make(chan context.Context, 1), release: make(chan struct{})}
	eng, err := New(context.Background(), Config{}, Options{Store: store, Enumerator: devices.Static(twoDevices), NoWatch: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	sess := eng.Session()
	require.Eventually(t, func() bool { return len(sess.Snapshot().Cameras) == 2 }, 2*time.Second, time.Millisecond)

	_, err = sess.Select(context.Background(), "id-1")
	require.NoError(t, err)

	var writeCtx context.Context
	select {
	case writeCtx = <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first write never started")
	}

	st, err := sess.Rotate(context.Background(), camera.CW)
	require.NoError(t, err)

	cancel()
	require.NoError(t, writeCtx.Err(), "shutdown must not abort an in-flight write")
	close(store.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}

	rec, err := persist.Load(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, persist.Equal(persist.Project(st), rec))
	assert.Equal(t, 90.0, rec.CameraSettings["id-1"].Angle)
}
