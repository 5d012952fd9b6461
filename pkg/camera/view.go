package camera

import (
	"fmt"
	"strconv"
)

// Placeholder messages rendered instead of a live view.
const (
	MessageNoCameras    = "Please connect a camera"
	MessageDetecting    = "Detecting cameras..."
	MessageSelectCamera = "Select a camera..."
)

// View is what a renderer needs to draw the current camera.
type View struct {
	CameraID   string  `json:"cameraId,omitempty"`
	CameraName string  `json:"cameraName,omitempty"`
	Angle      int     `json:"angle"`
	Zoom       float64 `json:"zoom"`
	Transform  string  `json:"transform,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// Live reports whether the view has a camera to show.
func (v View) Live() bool {
	return v.CameraID != ""
}

// ViewOf projects s onto the render surface.
func ViewOf(s *State) View {
	if s == nil {
		return View{Zoom: MinZoom, Message: MessageNoCameras}
	}

	st, ok := s.CurrentSettings()
	if !ok {
		v := View{Zoom: MinZoom, Message: MessageSelectCamera}
		switch {
		case s.IsInitializingCameraList && len(s.Cameras) == 0:
			v.Message = MessageDetecting
		case len(s.Cameras) == 0:
			v.Message = MessageNoCameras
		}
		return v
	}

	return View{
		CameraID:   s.CurrentCamera.ID,
		CameraName: s.CurrentCamera.Name,
		Angle:      st.Angle,
		Zoom:       st.Zoom,
		Transform:  Transform(st),
	}
}

// Transform renders st as a CSS-style transform, e.g. "rotate(-90deg) scale(2)".
func Transform(st Settings) string {
	return fmt.Sprintf("rotate(%ddeg) scale(%s)", st.Angle, strconv.FormatFloat(st.Zoom, 'f', -1, 64))
}

// CameraEntry describes one listed camera.
type CameraEntry struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Enabled  bool     `json:"enabled"`
	Current  bool     `json:"current"`
	LastUsed bool     `json:"lastUsed"`
	Settings Settings `json:"settings"`
}

// Listing is the camera list as shown to remote clients.
type Listing struct {
	Cameras      []CameraEntry `json:"cameras"`
	Initializing bool          `json:"initializing"`
	View         View          `json:"view"`
}

// ListingOf projects s onto a Listing.
func ListingOf(s *State) Listing {
	l := Listing{Cameras: []CameraEntry{}, View: ViewOf(s)}
	if s == nil {
		return l
	}

	l.Initializing = s.IsInitializingCameraList
	for _, c := range s.Cameras {
		st, ok := s.SettingsFor(c.ID)
		if !ok {
			st = DefaultSettings()
		}
		l.Cameras = append(l.Cameras, CameraEntry{
			ID:       c.ID,
			Name:     c.Name,
			Enabled:  c.Enabled,
			Current:  s.CurrentCamera != nil && s.CurrentCamera.ID == c.ID,
			LastUsed: s.LastUsedCamera == c.ID,
			Settings: st,
		})
	}
	return l
}
