package camera

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoCameras() *State {
	s := NewState()
	s.Cameras = []Camera{
		{ID: "id-1", Name: "camera-1", Enabled: true},
		{ID: "id-2", Name: "camera-2", Enabled: true},
	}
	return s
}

func withCurrent(s *State, id string, st Settings) *State {
	c, ok := s.CameraByID(id)
	if !ok {
		panic("camera not listed: " + id)
	}
	s.CurrentCamera = &c
	s.CameraSettings = map[string]Settings{id: st}
	return s
}

func deepCopy(s *State) *State {
	cp := *s
	cp.Cameras = slices.Clone(s.Cameras)
	cp.DisabledCameras = slices.Clone(s.DisabledCameras)
	cp.CameraSettings = maps.Clone(s.CameraSettings)
	if s.CurrentCamera != nil {
		c := *s.CurrentCamera
		cp.CurrentCamera = &c
	}
	return &cp
}

func TestBeginEnumeration(t *testing.T) {
	s := NewState()

	next := Reduce(s, BeginEnumeration{})

	assert.True(t, next.IsInitializingCameraList)
	assert.False(t, s.IsInitializingCameraList, "input must not be mutated")
	assert.Same(t, next, Reduce(next, BeginEnumeration{}), "idempotent")
}

func TestInitialEnumeration_LastUsedBecomesCurrent(t *testing.T) {
	s := twoCameras()
	s.LastUsedCamera = "id-2"
	s.IsInitializingCameraList = true

	next := Reduce(s, EnumerationSucceeded{Kind: Initial, Devices: []Device{
		{ID: "id-1", Label: "camera-1"},
		{ID: "id-2", Label: "camera-2"},
	}})

	assert.False(t, next.IsInitializingCameraList)
	require.NotNil(t, next.CurrentCamera)
	assert.Equal(t, "id-2", next.CurrentCamera.ID)
	assert.Equal(t, Settings{Angle: 0, Zoom: 1}, next.CameraSettings["id-2"])
	assert.Equal(t, []Camera{
		{ID: "id-1", Name: "camera-1", Enabled: true},
		{ID: "id-2", Name: "camera-2", Enabled: true},
	}, next.Cameras)
}

func TestInitialEnumeration_NoLastUsedLeavesCurrentUnset(t *testing.T) {
	s := NewState()
	s.IsInitializingCameraList = true

	next := Reduce(s, EnumerationSucceeded{Kind: Initial, Devices: []Device{
		{ID: "id-1", Label: "camera-1"},
		{ID: "id-2", Label: "camera-2"},
	}})

	assert.False(t, next.IsInitializingCameraList)
	assert.Nil(t, next.CurrentCamera)
	assert.Empty(t, next.CameraSettings)
	assert.Len(t, next.Cameras, 2)
}

func TestInitialEnumeration_KeepsRememberedSettings(t *testing.T) {
	s := NewState()
	s.LastUsedCamera = "id-1"
	s.CameraSettings = map[string]Settings{"id-1": {Angle: -90, Zoom: 3}}

	next := Reduce(s, EnumerationSucceeded{Kind: Initial, Devices: []Device{{ID: "id-1", Label: "camera-1"}}})

	require.NotNil(t, next.CurrentCamera)
	assert.Equal(t, Settings{Angle: -90, Zoom: 3}, next.CameraSettings["id-1"])
}

func TestInitialEnumeration_IgnoresPreviousCurrent(t *testing.T) {
	s := withCurrent(twoCameras(), "id-1", DefaultSettings())

	next := Reduce(s, EnumerationSucceeded{Kind: Initial, Devices: []Device{{ID: "id-1", Label: "camera-1"}}})

	assert.Nil(t, next.CurrentCamera)
}

func TestRefresh_CurrentDisconnected(t *testing.T) {
	s := withCurrent(twoCameras(), "id-1", DefaultSettings())
	s.IsInitializingCameraList = true

	next := Reduce(s, EnumerationSucceeded{Kind: Refresh, Devices: []Device{
		{ID: "id-3", Label: "camera-3"},
		{ID: "id-4", Label: "camera-4"},
	}})

	assert.False(t, next.IsInitializingCameraList)
	assert.Nil(t, next.CurrentCamera)
	assert.Equal(t, []Camera{
		{ID: "id-3", Name: "camera-3", Enabled: true},
		{ID: "id-4", Name: "camera-4", Enabled: true},
	}, next.Cameras)
	assert.Contains(t, next.CameraSettings, "id-1", "settings outlive disconnected cameras")
}

func TestRefresh_CurrentStaysAndNameRefreshes(t *testing.T) {
	s := withCurrent(twoCameras(), "id-1", Settings{Angle: 180, Zoom: 2})

	next := Reduce(s, EnumerationSucceeded{Kind: Refresh, Devices: []Device{
		{ID: "id-2", Label: "camera-2"},
		{ID: "id-1", Label: "renamed"},
	}})

	require.NotNil(t, next.CurrentCamera)
	assert.Equal(t, Camera{ID: "id-1", Name: "renamed", Enabled: true}, *next.CurrentCamera)
	assert.Equal(t, Settings{Angle: 180, Zoom: 2}, next.CameraSettings["id-1"])
}

func TestRefresh_LastUsedWinsBackFocus(t *testing.T) {
	s := withCurrent(twoCameras(), "id-1", DefaultSettings())
	s.LastUsedCamera = "id-9"
	s.CameraSettings["id-9"] = Settings{Angle: 90, Zoom: 2}

	next := Reduce(s, EnumerationSucceeded{Kind: Refresh, Devices: []Device{
		{ID: "id-1", Label: "camera-1"},
		{ID: "id-9", Label: "preferred"},
	}})

	require.NotNil(t, next.CurrentCamera)
	assert.Equal(t, "id-9", next.CurrentCamera.ID)
	assert.Equal(t, Settings{Angle: 90, Zoom: 2}, next.CameraSettings["id-9"])
}

func TestRefresh_ReplugWithNoCurrent(t *testing.T) {
	s := NewState()
	s.LastUsedCamera = "id-1"

	next := Reduce(s, EnumerationSucceeded{Kind: Refresh, Devices: []Device{{ID: "id-1", Label: "camera-1"}}})

	require.NotNil(t, next.CurrentCamera)
	assert.Equal(t, "id-1", next.CurrentCamera.ID)
	assert.Equal(t, DefaultSettings(), next.CameraSettings["id-1"])
}

func TestRefresh_DisabledCamerasStayDisabled(t *testing.T) {
	s := NewState()
	s.DisabledCameras = []string{"id-4"}

	next := Reduce(s, EnumerationSucceeded{Kind: Refresh, Devices: []Device{
		{ID: "id-3", Label: "camera-3"},
		{ID: "id-4", Label: "camera-4"},
	}})

	assert.Equal(t, []Camera{
		{ID: "id-3", Name: "camera-3", Enabled: true},
		{ID: "id-4", Name: "camera-4", Enabled: false},
	}, next.Cameras)
}

func TestEnumeration_DisabledLastUsedIsNotSelected(t *testing.T) {
	s := NewState()
	s.LastUsedCamera = "id-1"
	s.DisabledCameras = []string{"id-1"}

	next := Reduce(s, EnumerationSucceeded{Kind: Initial, Devices: []Device{{ID: "id-1", Label: "camera-1"}}})

	assert.Nil(t, next.CurrentCamera)
	require.NoError(t, next.Check())
}

func TestEnumeration_DuplicateIDsKeepFirst(t *testing.T) {
	next := Reduce(NewState(), EnumerationSucceeded{Kind: Initial, Devices: []Device{
		{ID: "id-1", Label: "first"},
		{ID: "id-1", Label: "second"},
	}})

	assert.Equal(t, []Camera{{ID: "id-1", Name: "first", Enabled: true}}, next.Cameras)
}

func TestSelectCamera(t *testing.T) {
	s := twoCameras()

	next := Reduce(s, SelectCamera{ID: "id-1"})

	require.NotNil(t, next.CurrentCamera)
	assert.Equal(t, s.Cameras[0], *next.CurrentCamera)
	assert.Equal(t, "id-1", next.LastUsedCamera)
	assert.Equal(t, Settings{Angle: 0, Zoom: 1}, next.CameraSettings["id-1"])
	assert.Nil(t, s.CurrentCamera, "input must not be mutated")
	assert.Empty(t, s.CameraSettings)
}

func TestSelectCamera_PreservesSettings(t *testing.T) {
	s := twoCameras()
	s.CameraSettings = map[string]Settings{"id-2": {Angle: 270, Zoom: 2.5}}

	next := Reduce(s, SelectCamera{ID: "id-2"})

	assert.Equal(t, Settings{Angle: 270, Zoom: 2.5}, next.CameraSettings["id-2"])
}

func TestSelectCamera_NoOps(t *testing.T) {
	tests := []struct {
		name  string
		state func() *State
		id    string
	}{
		{name: "unknown id on empty state", state: NewState, id: "does-not-exist"},
		{name: "unknown id", state: twoCameras, id: "id-9"},
		{name: "empty id", state: twoCameras, id: ""},
		{
			name: "disabled camera",
			state: func() *State {
				s := twoCameras()
				s.Cameras[1].Enabled = false
				s.DisabledCameras = []string{"id-2"}
				return s
			},
			id: "id-2",
		},
		{
			name: "already current",
			state: func() *State {
				s := withCurrent(twoCameras(), "id-1", DefaultSettings())
				s.LastUsedCamera = "id-1"
				return s
			},
			id: "id-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.state()
			before := deepCopy(s)

			next := Reduce(s, SelectCamera{ID: tt.id})

			assert.Same(t, s, next)
			assert.Equal(t, before, next)
		})
	}
}

func TestToggleCamera(t *testing.T) {
	s := withCurrent(twoCameras(), "id-1", DefaultSettings())

	disabled := Reduce(s, ToggleCamera{ID: "id-2"})
	assert.False(t, disabled.Cameras[1].Enabled)
	assert.Equal(t, []string{"id-2"}, disabled.DisabledCameras)
	assert.True(t, s.Cameras[1].Enabled, "input must not be mutated")

	enabled := Reduce(disabled, ToggleCamera{ID: "id-2"})
	assert.True(t, enabled.Cameras[1].Enabled)
	assert.Empty(t, enabled.DisabledCameras)
}

func TestToggleCamera_CurrentIsNoOp(t *testing.T) {
	s := withCurrent(twoCameras(), "id-1", DefaultSettings())

	assert.Same(t, s, Reduce(s, ToggleCamera{ID: "id-1"}))
}

func TestToggleCamera_UnknownIsNoOp(t *testing.T) {
	s := twoCameras()
	s.DisabledCameras = []string{"gone"}

	assert.Same(t, s, Reduce(s, ToggleCamera{ID: "id-9"}))
}

func TestToggleCamera_DisabledCannotBeSelected(t *testing.T) {
	s := Reduce(twoCameras(), ToggleCamera{ID: "id-1"})

	assert.Same(t, s, Reduce(s, SelectCamera{ID: "id-1"}))
}

func TestRotateCamera(t *testing.T) {
	tests := []struct {
		angle     int
		direction Direction
		want      int
	}{
		{angle: 0, direction: CW, want: 90},
		{angle: 90, direction: CW, want: 180},
		{angle: 180, direction: CW, want: 270},
		{angle: 270, direction: CW, want: 0},
		{angle: 0, direction: CCW, want: -90},
		{angle: -90, direction: CCW, want: -180},
		{angle: -180, direction: CCW, want: -270},
		{angle: -270, direction: CCW, want: 0},
		{angle: -90, direction: CW, want: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s from %d", tt.direction, tt.angle), func(t *testing.T) {
			s := withCurrent(twoCameras(), "id-1", Settings{Angle: tt.angle, Zoom: 1})

			next := Reduce(s, RotateCamera{Direction: tt.direction})

			assert.Equal(t, tt.want, next.CameraSettings["id-1"].Angle)
		})
	}
}

func TestRotateCamera_RoundTrips(t *testing.T) {
	for _, start := range []int{0, 90, -90, 180, -270} {
		s := withCurrent(twoCameras(), "id-1", Settings{Angle: start, Zoom: 1})

		full := s
		for range 4 {
			full = Reduce(full, RotateCamera{Direction: CW})
		}
		assert.Equal(t, 0, (full.CameraSettings["id-1"].Angle-start)%360, "four cw rotations from %d", start)

		back := Reduce(Reduce(s, RotateCamera{Direction: CW}), RotateCamera{Direction: CCW})
		assert.Equal(t, start, back.CameraSettings["id-1"].Angle)
	}
}

func TestRotateCamera_NoCurrentOrBadDirection(t *testing.T) {
	s := twoCameras()
	assert.Same(t, s, Reduce(s, RotateCamera{Direction: CW}))

	s = withCurrent(twoCameras(), "id-1", DefaultSettings())
	assert.Same(t, s, Reduce(s, RotateCamera{Direction: "sideways"}))
}

func TestZoomCamera(t *testing.T) {
	tests := []struct {
		zoom float64
		step float64
		want float64
	}{
		{zoom: 1, step: 1, want: 2},
		{zoom: 2, step: 1, want: 3},
		{zoom: 3, step: 1, want: 4},
		{zoom: 4, step: 1, want: 4},
		{zoom: 4, step: -1, want: 3},
		{zoom: 3, step: -1, want: 2},
		{zoom: 2, step: -1, want: 1},
		{zoom: 1, step: -1, want: 1},
		{zoom: 1, step: 10, want: 4},
		{zoom: 4, step: -10, want: 1},
		{zoom: 1, step: 0.5, want: 1.5},
		{zoom: 2, step: math.Inf(1), want: 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v by %v", tt.zoom, tt.step), func(t *testing.T) {
			s := withCurrent(twoCameras(), "id-1", Settings{Angle: 90, Zoom: tt.zoom})

			next := Reduce(s, ZoomCamera{Step: tt.step})

			assert.InDelta(t, tt.want, next.CameraSettings["id-1"].Zoom, 1e-9)
			assert.Equal(t, 90, next.CameraSettings["id-1"].Angle)
		})
	}
}

func TestZoomCamera_NaNAndNoCurrent(t *testing.T) {
	s := withCurrent(twoCameras(), "id-1", Settings{Zoom: 2})
	assert.Same(t, s, Reduce(s, ZoomCamera{Step: math.NaN()}))

	empty := twoCameras()
	assert.Same(t, empty, Reduce(empty, ZoomCamera{Step: 1}))
}

func TestResetZoom(t *testing.T) {
	s := withCurrent(twoCameras(), "id-1", Settings{Angle: -180, Zoom: 4})

	next := Reduce(s, ResetZoomCamera{})

	assert.Equal(t, Settings{Angle: -180, Zoom: 1}, next.CameraSettings["id-1"])
	assert.Equal(t, 4.0, s.CameraSettings["id-1"].Zoom, "input must not be mutated")

	empty := twoCameras()
	assert.Same(t, empty, Reduce(empty, ResetZoomCamera{}))
}

func TestReduce_NilStateAndUnknownEvent(t *testing.T) {
	next := Reduce(nil, SelectCamera{ID: "x"})
	require.NotNil(t, next)
	assert.Nil(t, next.CurrentCamera)

	s := twoCameras()
	assert.Same(t, s, Reduce(s, nil))
}

func TestReduce_InvariantsHoldForRandomEvents(t *testing.T) {
	ids := []string{"id-1", "id-2", "id-3", "id-4", "", "ghost"}
	rng := rand.New(rand.NewPCG(7, 11))

	randomDevices := func() []Device {
		var out []Device
		for _, id := range ids[:4] {
			if rng.IntN(2) == 0 {
				out = append(out, Device{ID: id, Label: "label-" + id})
			}
		}
		return out
	}

	s := NewState()
	for i := range 5000 {
		var ev Event
		switch rng.IntN(8) {
		case 0:
			ev = BeginEnumeration{}
		case 1:
			ev = EnumerationSucceeded{Kind: EnumerationKind(rng.IntN(2)), Devices: randomDevices()}
		case 2:
			ev = SelectCamera{ID: ids[rng.IntN(len(ids))]}
		case 3:
			ev = ToggleCamera{ID: ids[rng.IntN(len(ids))]}
		case 4:
			ev = RotateCamera{Direction: []Direction{CW, CCW}[rng.IntN(2)]}
		case 5:
			ev = ZoomCamera{Step: float64(rng.IntN(9) - 4)}
		case 6:
			ev = ResetZoomCamera{}
		default:
			ev = SelectCamera{ID: ids[rng.IntN(4)]}
		}

		before := deepCopy(s)
		next := Reduce(s, ev)

		require.Equal(t, before, s, "step %d: %T mutated its input", i, ev)
		require.NoError(t, next.Check(), "step %d after %#v", i, ev)
		if next.CurrentCamera != nil {
			_, ok := next.SettingsFor(next.CurrentCamera.ID)
			require.True(t, ok, "step %d: current camera without settings", i)
		}
		s = next
	}
}
