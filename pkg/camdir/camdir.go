// Package camdir encapsulates all path knowledge for the .camview/ project
// directory. It provides a Dir value object with accessors for config, the
// device fixture, and local runtime state paths.
package camdir

import (
	"os"
	"path/filepath"
)

// DefaultName is the directory name looked up in the working directory.
const DefaultName = ".camview"

// Dir is a value object that resolves paths within a .camview/ directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path. The path is converted to an
// absolute path. No I/O is performed; BootstrapWithConfig creates the
// directory and EnsureStructure completes an existing one.
func New(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	return Dir{root: abs}
}

// Root returns the absolute path to the .camview/ directory.
func (d Dir) Root() string { return d.root }

// ConfigPath returns the path to the main config file.
func (d Dir) ConfigPath() string { return filepath.Join(d.root, "config.yaml") }

// DevicesPath returns the path to the device fixture used by the file source.
func (d Dir) DevicesPath() string { return filepath.Join(d.root, "devices.yaml") }

// LocalDir returns the path to the local (gitignored) runtime state directory.
func (d Dir) LocalDir() string { return filepath.Join(d.root, "local") }

// StorePath returns where a store of the given kind keeps its data: a
// directory for "file", a database file for "sqlite".
func (d Dir) StorePath(kind string) string {
	if kind == "sqlite" {
		return filepath.Join(d.root, "local", "camview.db")
	}
	return filepath.Join(d.root, "local", "store")
}

// LogPath returns the path to the structured log file.
func (d Dir) LogPath() string { return filepath.Join(d.root, "local", "camview.log") }

// GitignorePath returns the path to the .gitignore file inside .camview/.
func (d Dir) GitignorePath() string { return filepath.Join(d.root, ".gitignore") }

// Exists reports whether the .camview/ root directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)

	return err == nil && info.IsDir()
}

// HasConfig reports whether a config file exists.
func (d Dir) HasConfig() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
