package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"github.com/mattn/go-runewidth"

	"github.com/germanamz/camview/pkg/camdir"
	"github.com/germanamz/camview/pkg/engine"
	"github.com/germanamz/camview/pkg/kvstore"
)

// mdRenderer renders markdown to terminal-formatted output.
var mdRenderer *glamour.TermRenderer

func initMarkdownRenderer(width int) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	mdRenderer = r
}

// renderMarkdown converts markdown text to terminal-formatted output.
func renderMarkdown(text string) string {
	if mdRenderer == nil {
		return text
	}
	out, err := mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// truncate shortens s to at most n terminal cells, appending "…" when
// truncated. Newlines are replaced with spaces for single-line display.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if n <= 0 {
		return ""
	}
	return runewidth.Truncate(s, n, "…")
}

// fmtZoom formats a zoom factor without trailing zeros.
func fmtZoom(z float64) string {
	return strconv.FormatFloat(z, 'f', -1, 64)
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// resolveConfigPath returns the config file to use. Priority:
// 1. Explicit --config flag (non-empty)
// 2. <camview-dir>/config.yaml (if it exists)
// 3. camview.yaml in the working directory (if it exists)
// An empty result means built-in defaults.
func resolveConfigPath(explicit string, d camdir.Dir) string {
	if explicit != "" {
		return explicit
	}

	if d.HasConfig() {
		return d.ConfigPath()
	}

	if _, err := os.Stat("camview.yaml"); err == nil {
		return "camview.yaml"
	}

	return ""
}

// loadConfig resolves, loads and completes the configuration. Paths left
// empty are filled in from the project directory.
func loadConfig(explicit string, d camdir.Dir) (engine.Config, error) {
	var cfg engine.Config

	if path := resolveConfigPath(explicit, d); path != "" {
		loaded, err := engine.LoadConfig(path)
		if err != nil {
			return engine.Config{}, err
		}
		cfg = loaded
	} else if err := engine.ApplyEnv(&cfg); err != nil {
		return engine.Config{}, err
	}

	applyDirDefaults(&cfg, d)

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

// applyDirDefaults fills unset paths with locations inside d. An unset store
// kind defaults to the file store so settings survive restarts.
func applyDirDefaults(cfg *engine.Config, d camdir.Dir) {
	if cfg.Store.Kind == "" {
		cfg.Store.Kind = string(kvstore.KindFile)
	}
	if cfg.Store.Path == "" && cfg.Store.Kind != string(kvstore.KindMemory) {
		cfg.Store.Path = d.StorePath(cfg.Store.Kind)
	}
	if cfg.Devices.Source == engine.SourceFile && cfg.Devices.Path == "" {
		cfg.Devices.Path = d.DevicesPath()
	}
	if cfg.Log.File == "" {
		cfg.Log.File = d.LogPath()
	}
}

// parseLogLevel maps a config level name to a slog level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger opens the log file and returns a JSON logger writing to it. The
// terminal belongs to the TUI (or to MCP over stdio), so logs never go to
// stdout.
func newLogger(cfg engine.LogConfig) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)})
	return slog.New(handler), f, nil
}
