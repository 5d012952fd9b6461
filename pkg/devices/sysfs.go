package devices

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/germanamz/camview/pkg/camera"
)

const (
	DefaultSysfsRoot = "/sys/class/video4linux"
	DefaultByIDDir   = "/dev/v4l/by-id"
)

// SysfsEnumerator lists V4L2 capture nodes from sysfs. Ids are the stable
// by-id link names when udev provides them, else the node name.
type SysfsEnumerator struct {
	Root    string // defaults to DefaultSysfsRoot
	ByIDDir string // defaults to DefaultByIDDir
}

// Enumerate lists capture nodes. A missing sysfs class directory means no
// cameras.
func (e SysfsEnumerator) Enumerate(ctx context.Context) ([]camera.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := cmp.Or(e.Root, DefaultSysfsRoot)
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return []camera.Device{}, nil
	}
	if err != nil {
		return nil, wrapFS("read "+root, err)
	}

	ids, err := byIDLinks(cmp.Or(e.ByIDDir, DefaultByIDDir))
	if err != nil {
		return nil, err
	}

	nodes := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "video") {
			nodes = append(nodes, entry.Name())
		}
	}
	slices.SortFunc(nodes, func(a, b string) int { return nodeNumber(a) - nodeNumber(b) })

	list := make([]camera.Device, 0, len(nodes))
	for _, node := range nodes {
		dir := filepath.Join(root, node)

		// Each physical camera usually exposes a metadata node next to the
		// capture node; only index 0 is a capture stream.
		if idx, err := readAttr(dir, "index"); err == nil && idx != "0" {
			continue
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, wrapFS("read "+node+" index", err)
		}

		label, err := readAttr(dir, "name")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, wrapFS("read "+node+" name", err)
		}

		list = append(list, camera.Device{
			ID:    cmp.Or(ids[node], node),
			Label: cmp.Or(label, node),
		})
	}

	return list, nil
}

// byIDLinks maps node names (video0) to their by-id link names.
func byIDLinks(dir string) (map[string]string, error) {
	links := map[string]string{}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return links, nil
	}
	if err != nil {
		return nil, wrapFS("read "+dir, err)
	}

	for _, entry := range entries {
		target, err := os.Readlink(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		node := filepath.Base(target)
		if _, taken := links[node]; !taken {
			links[node] = entry.Name()
		}
	}

	return links, nil
}

func readAttr(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func nodeNumber(node string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(node, "video"))
	if err != nil {
		return -1
	}
	return n
}

func wrapFS(op string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %w", ErrPermissionDenied, op, err)
	}
	return fmt.Errorf("devices: %s: %w", op, err)
}
