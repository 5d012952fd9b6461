// Package devices provides camera enumeration and the device-change signal
// that drives refresh enumerations.
package devices

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/germanamz/camview/pkg/camera"
)

// ErrPermissionDenied is returned when the process may not inspect cameras.
var ErrPermissionDenied = errors.New("devices: permission denied")

// Enumerator lists the video input devices currently present.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]camera.Device, error)
}

// Watcher emits one notification per device-set change. The channel is
// closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context) <-chan struct{}
}

// Static is a fixed device list.
type Static []camera.Device

// Enumerate returns a copy of the list.
func (s Static) Enumerate(ctx context.Context) ([]camera.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s), nil
}

// Fingerprint identifies a device set by its ids and labels in order.
func Fingerprint(list []camera.Device) string {
	var b strings.Builder
	for _, d := range list {
		b.WriteString(d.ID)
		b.WriteByte(0)
		b.WriteString(d.Label)
		b.WriteByte('\n')
	}
	return b.String()
}
