package camdir

import (
	"fmt"
	"os"
)

const gitignoreContent = "local/\n"

// EnsureStructure creates the local/ directory and .gitignore file if they are
// missing. The .camview/ root itself must already exist; only
// BootstrapWithConfig creates it. It is safe to call multiple times.
func EnsureStructure(d Dir) error {
	if !d.Exists() {
		return fmt.Errorf("camdir: %s does not exist", d.Root())
	}

	if err := os.MkdirAll(d.LocalDir(), 0o750); err != nil {
		return fmt.Errorf("camdir: create local dir: %w", err)
	}

	if err := ensureGitignore(d); err != nil {
		return fmt.Errorf("camdir: gitignore: %w", err)
	}

	return nil
}

// ensureGitignore creates the .gitignore file if it does not exist.
func ensureGitignore(d Dir) error {
	path := d.GitignorePath()

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(gitignoreContent), 0o600)
}

// BootstrapWithConfig creates the .camview/ root when missing, then the
// directory layout, and writes config as the config file, replacing any
// existing one.
func BootstrapWithConfig(d Dir, config []byte) error {
	if err := os.MkdirAll(d.Root(), 0o750); err != nil {
		return fmt.Errorf("camdir: create root: %w", err)
	}

	if err := EnsureStructure(d); err != nil {
		return err
	}

	if err := os.WriteFile(d.ConfigPath(), config, 0o600); err != nil {
		return fmt.Errorf("camdir: write config: %w", err)
	}

	return nil
}
