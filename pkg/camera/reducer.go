package camera

import (
	"math"
	"slices"
)

// Reduce applies ev to s and returns the resulting state. When ev has no
// effect the same pointer is returned, so callers can skip redundant work by
// comparing pointers. Reduce never mutates s and never panics; ids that are
// not listed are ignored.
func Reduce(s *State, ev Event) *State {
	if s == nil {
		s = NewState()
	}

	switch ev := ev.(type) {
	case BeginEnumeration:
		return beginEnumeration(s)
	case EnumerationSucceeded:
		return reconcile(s, ev)
	case SelectCamera:
		return selectCamera(s, ev.ID)
	case ToggleCamera:
		return toggleCamera(s, ev.ID)
	case RotateCamera:
		return rotateCamera(s, ev.Direction)
	case ZoomCamera:
		return zoomCamera(s, ev.Step)
	case ResetZoomCamera:
		return resetZoom(s)
	default:
		return s
	}
}

func beginEnumeration(s *State) *State {
	if s.IsInitializingCameraList {
		return s
	}
	next := s.clone()
	next.IsInitializingCameraList = true
	return next
}

// reconcile rebuilds the camera list from a fresh enumeration and decides
// which camera is current. Priority: the last used camera when listed, then
// (on refresh only) the previously current camera when still listed.
func reconcile(s *State, ev EnumerationSucceeded) *State {
	next := s.clone()
	next.IsInitializingCameraList = false
	next.Cameras = make([]Camera, 0, len(ev.Devices))
	for _, d := range ev.Devices {
		if next.indexOf(d.ID) >= 0 {
			continue // ids are join keys; keep the first occurrence
		}
		next.Cameras = append(next.Cameras, Camera{
			ID:      d.ID,
			Name:    d.Label,
			Enabled: !s.IsDisabled(d.ID),
		})
	}

	next.CurrentCamera = nil
	if c, ok := next.selectable(s.LastUsedCamera); ok {
		next.CurrentCamera = &c
	} else if ev.Kind == Refresh && s.CurrentCamera != nil {
		if c, ok := next.selectable(s.CurrentCamera.ID); ok {
			next.CurrentCamera = &c
		}
	}

	if next.CurrentCamera != nil {
		next.ensureSettings(next.CurrentCamera.ID)
	}

	return next
}

// selectable returns the listed, enabled camera with the given id.
func (s *State) selectable(id string) (Camera, bool) {
	if id == "" {
		return Camera{}, false
	}
	c, ok := s.CameraByID(id)
	if !ok || !c.Enabled {
		return Camera{}, false
	}
	return c, true
}

func selectCamera(s *State, id string) *State {
	c, ok := s.selectable(id)
	if !ok {
		return s
	}

	_, hasSettings := s.SettingsFor(id)
	if s.CurrentCamera != nil && *s.CurrentCamera == c && s.LastUsedCamera == id && hasSettings {
		return s
	}

	next := s.clone()
	next.CurrentCamera = &c
	next.LastUsedCamera = id
	next.ensureSettings(id)
	return next
}

func toggleCamera(s *State, id string) *State {
	if s.CurrentCamera != nil && s.CurrentCamera.ID == id {
		return s
	}

	i := s.indexOf(id)
	if i < 0 {
		return s
	}

	next := s.clone()
	next.Cameras = slices.Clone(s.Cameras)
	next.Cameras[i].Enabled = !next.Cameras[i].Enabled

	// Re-derived from the whole list.
	next.DisabledCameras = []string{}
	for _, c := range next.Cameras {
		if !c.Enabled {
			next.DisabledCameras = append(next.DisabledCameras, c.ID)
		}
	}

	return next
}

func rotateCamera(s *State, dir Direction) *State {
	var delta int
	switch dir {
	case CW:
		delta = RotationStep
	case CCW:
		delta = -RotationStep
	default:
		return s
	}

	return updateCurrent(s, func(st Settings) Settings {
		// Go's % keeps the sign of the dividend, so ccw rotation accumulates
		// negative angles: 0, -90, -180, -270, 0.
		st.Angle = (st.Angle + delta) % 360
		return st
	})
}

func zoomCamera(s *State, step float64) *State {
	if math.IsNaN(step) {
		return s
	}

	return updateCurrent(s, func(st Settings) Settings {
		st.Zoom = ClampZoom(st.Zoom + step)
		return st
	})
}

func resetZoom(s *State) *State {
	return updateCurrent(s, func(st Settings) Settings {
		st.Zoom = MinZoom
		return st
	})
}

// updateCurrent applies fn to the current camera's settings. It is a no-op
// without a current camera or when fn leaves the settings unchanged.
func updateCurrent(s *State, fn func(Settings) Settings) *State {
	cur, ok := s.CurrentSettings()
	if !ok {
		return s
	}

	id := s.CurrentCamera.ID
	updated := fn(cur)
	if stored, exists := s.SettingsFor(id); exists && stored == updated {
		return s
	}

	next := s.clone()
	next.CameraSettings = s.withSettings(id, updated)
	return next
}
