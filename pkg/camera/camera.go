package camera

import "math"

// Zoom bounds applied to every Settings.Zoom value.
const (
	MinZoom = 1.0
	MaxZoom = 4.0
)

// RotationStep is the angle, in degrees, added or removed by one rotation.
const RotationStep = 90

// Device is a capture device descriptor as reported by one enumeration.
type Device struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Camera is the session's view of a device.
type Camera struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Settings is the view transform remembered for a single camera.
type Settings struct {
	Angle int     `json:"angle"`
	Zoom  float64 `json:"zoom"`
}

// DefaultSettings returns the settings applied the first time a camera
// becomes current.
func DefaultSettings() Settings {
	return Settings{Angle: 0, Zoom: MinZoom}
}

// ClampZoom limits z to [MinZoom, MaxZoom]. NaN maps to MinZoom.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return MinZoom
	}
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}
