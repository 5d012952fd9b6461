package devices

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/germanamz/camview/pkg/camera"
)

// fixture is the YAML layout read by FileEnumerator.
type fixture struct {
	Denied  bool            `yaml:"denied"`
	Devices []camera.Device `yaml:"devices"`
}

// FileEnumerator reads the device list from a YAML file on every call, so
// editing the file simulates plugging and unplugging cameras:
//
//	devices:
//	  - id: usb-cam-1
//	    label: Front camera
//
// Setting "denied: true" makes enumeration fail with ErrPermissionDenied.
type FileEnumerator struct {
	Path string
}

// Enumerate reads the fixture. A missing file means no cameras.
func (e FileEnumerator) Enumerate(ctx context.Context) ([]camera.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(e.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []camera.Device{}, nil
	}
	if err != nil {
		return nil, wrapFS("read "+e.Path, err)
	}

	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("devices: parse %s: %w", e.Path, err)
	}
	if fx.Denied {
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, e.Path)
	}
	if fx.Devices == nil {
		fx.Devices = []camera.Device{}
	}

	return fx.Devices, nil
}
