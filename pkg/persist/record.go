// Package persist derives the durable subset of a camera session and rebuilds
// the initial session state from it.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/germanamz/camview/pkg/camera"
)

// Key is the single key the record is stored under.
const Key = "cameraSettings"

// ErrCorruptRecord is returned by Load when stored data cannot be decoded.
var ErrCorruptRecord = errors.New("persist: corrupt record")

// Store is the key-value byte store the record lives in.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// RecordSettings is the stored form of camera.Settings.
type RecordSettings struct {
	Angle float64 `json:"angle"`
	Zoom  float64 `json:"zoom"`
}

// Record is what survives a restart.
type Record struct {
	LastUsedCamera  string                    `json:"lastUsedCamera,omitempty"`
	DisabledCameras []string                  `json:"disabledCameras"`
	CameraSettings  map[string]RecordSettings `json:"cameraSettings"`
}

// Project extracts the durable fields of s.
func Project(s *camera.State) Record {
	r := Record{
		DisabledCameras: []string{},
		CameraSettings:  map[string]RecordSettings{},
	}
	if s == nil {
		return r
	}

	r.LastUsedCamera = s.LastUsedCamera
	if s.DisabledCameras != nil {
		r.DisabledCameras = slices.Clone(s.DisabledCameras)
	}
	for id, st := range s.CameraSettings {
		r.CameraSettings[id] = RecordSettings{Angle: float64(st.Angle), Zoom: st.Zoom}
	}

	return r
}

// Seed builds the state a session starts from. Cameras and the current camera
// are never restored; they come from live enumeration.
func Seed(r Record) *camera.State {
	s := camera.NewState()
	s.LastUsedCamera = r.LastUsedCamera
	if r.DisabledCameras != nil {
		s.DisabledCameras = slices.Clone(r.DisabledCameras)
	}
	for id, st := range r.CameraSettings {
		s.CameraSettings[id] = camera.Settings{
			Angle: reviveAngle(st.Angle),
			Zoom:  reviveZoom(st.Zoom),
		}
	}
	return s
}

// reviveAngle keeps rotation on a 90 degree step within (-360, 360).
func reviveAngle(a float64) int {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	// Reduce first so the float to int conversion stays in range.
	a = math.Mod(a, 360)
	steps := int(math.Round(a/camera.RotationStep)) % (360 / camera.RotationStep)
	return steps * camera.RotationStep
}

func reviveZoom(z float64) float64 {
	if z == 0 || math.IsInf(z, 0) {
		return camera.MinZoom
	}
	return camera.ClampZoom(z)
}

// Encode serializes r as JSON.
func Encode(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("persist: encode: %w", err)
	}
	return data, nil
}

// Decode parses a stored record. A missing disabled list or settings map
// decodes as empty.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if r.DisabledCameras == nil {
		r.DisabledCameras = []string{}
	}
	if r.CameraSettings == nil {
		r.CameraSettings = map[string]RecordSettings{}
	}
	return r, nil
}

// Load reads the record from store. Absent data yields an empty record.
// Undecodable data yields an empty record and an error wrapping
// ErrCorruptRecord so the caller can log it and carry on.
func Load(ctx context.Context, store Store) (Record, error) {
	empty := Record{DisabledCameras: []string{}, CameraSettings: map[string]RecordSettings{}}

	data, ok, err := store.Get(ctx, Key)
	if err != nil {
		return empty, fmt.Errorf("persist: load: %w", err)
	}
	if !ok || len(data) == 0 {
		return empty, nil
	}

	r, err := Decode(data)
	if err != nil {
		return empty, err
	}
	return r, nil
}

// Save writes the durable projection of s.
func Save(ctx context.Context, store Store, s *camera.State) error {
	data, err := Encode(Project(s))
	if err != nil {
		return err
	}
	if err := store.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("persist: save: %w", err)
	}
	return nil
}

// Equal reports whether two records hold the same data.
func Equal(a, b Record) bool {
	return a.LastUsedCamera == b.LastUsedCamera &&
		slices.Equal(a.DisabledCameras, b.DisabledCameras) &&
		maps.Equal(a.CameraSettings, b.CameraSettings)
}
