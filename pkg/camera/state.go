package camera

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// State is the aggregate owned by a camera session.
//
// A State returned by Reduce must be treated as immutable: transitions copy
// whatever they change, so snapshots can be shared across goroutines.
type State struct {
	Cameras                  []Camera
	DisabledCameras          []string
	LastUsedCamera           string // empty when unset
	CurrentCamera            *Camera
	CameraSettings           map[string]Settings
	IsInitializingCameraList bool
}

// NewState returns an empty state with no persisted history.
func NewState() *State {
	return &State{
		DisabledCameras: []string{},
		CameraSettings:  map[string]Settings{},
	}
}

// SettingsFor returns the settings remembered for id.
func (s *State) SettingsFor(id string) (Settings, bool) {
	st, ok := s.CameraSettings[id]
	return st, ok
}

// CurrentSettings returns the settings of the current camera. ok is false
// when no camera is current.
func (s *State) CurrentSettings() (Settings, bool) {
	if s.CurrentCamera == nil {
		return Settings{}, false
	}
	if st, ok := s.SettingsFor(s.CurrentCamera.ID); ok {
		return st, true
	}
	return DefaultSettings(), true
}

// CameraByID returns the listed camera with the given id.
func (s *State) CameraByID(id string) (Camera, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Camera{}, false
	}
	return s.Cameras[i], true
}

// IsDisabled reports whether id is in the disabled set.
func (s *State) IsDisabled(id string) bool {
	return slices.Contains(s.DisabledCameras, id)
}

// Check reports every invariant the state violates, joined into one error.
func (s *State) Check() error {
	var errs []error

	if s.CurrentCamera != nil {
		c, ok := s.CameraByID(s.CurrentCamera.ID)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("current camera %q is not listed", s.CurrentCamera.ID))
		case !c.Enabled:
			errs = append(errs, fmt.Errorf("current camera %q is disabled", c.ID))
		}
	}

	for _, c := range s.Cameras {
		if c.Enabled == s.IsDisabled(c.ID) {
			errs = append(errs, fmt.Errorf("camera %q: enabled=%t disagrees with disabled set", c.ID, c.Enabled))
		}
	}

	for id, st := range s.CameraSettings {
		if st.Zoom < MinZoom || st.Zoom > MaxZoom {
			errs = append(errs, fmt.Errorf("camera %q: zoom %v out of range", id, st.Zoom))
		}
	}

	return errors.Join(errs...)
}

func (s *State) indexOf(id string) int {
	return slices.IndexFunc(s.Cameras, func(c Camera) bool { return c.ID == id })
}

// clone returns a shallow copy; slices and maps are still shared and must be
// replaced, not mutated, by the caller.
func (s *State) clone() *State {
	cp := *s
	return &cp
}

// withSettings returns a copy of the settings map with id set to st.
func (s *State) withSettings(id string, st Settings) map[string]Settings {
	m := maps.Clone(s.CameraSettings)
	if m == nil {
		m = make(map[string]Settings, 1)
	}
	m[id] = st
	return m
}

// ensureSettings makes sure id has settings, inserting defaults if needed.
func (s *State) ensureSettings(id string) {
	if _, ok := s.CameraSettings[id]; ok {
		return
	}
	s.CameraSettings = s.withSettings(id, DefaultSettings())
}
