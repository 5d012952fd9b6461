package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/germanamz/camview/pkg/camdir"
	"github.com/germanamz/camview/pkg/engine"
)

// sampleDevices seeds devices.yaml for the file source.
const sampleDevices = `# Cameras reported by the file device source. Edit while camview runs to
# simulate plugging and unplugging. Set "denied: true" to simulate a
# permission failure.
devices:
  - id: usb-front-camera
    label: Front camera
  - id: usb-document-camera
    label: Document camera
`

// wizardAnswers holds the raw form values. Durations stay strings until
// buildConfig so the form can bind to them directly.
type wizardAnswers struct {
	StoreKind      string
	DeviceSource   string
	PollInterval   string
	FeedAddr       string
	ControlEnabled bool
	LogLevel       string
}

func defaultAnswers() wizardAnswers {
	return wizardAnswers{
		StoreKind:    "file",
		DeviceSource: engine.SourceSysfs,
		PollInterval: "2s",
		LogLevel:     "info",
	}
}

// answersFrom pre-fills the form from an existing config.
func answersFrom(cfg engine.Config) wizardAnswers {
	a := defaultAnswers()
	if cfg.Store.Kind != "" {
		a.StoreKind = cfg.Store.Kind
	}
	if cfg.Devices.Source != "" {
		a.DeviceSource = cfg.Devices.Source
	}
	if cfg.Devices.PollInterval != "" {
		a.PollInterval = cfg.Devices.PollInterval
	}
	if cfg.Log.Level != "" {
		a.LogLevel = cfg.Log.Level
	}
	a.FeedAddr = cfg.Feed.Addr
	a.ControlEnabled = cfg.Control.Enabled
	return a
}

// buildConfig turns answers into a config. Paths are left empty so they
// resolve inside the project directory at startup; settings the wizard does
// not ask about are carried over from prev.
func buildConfig(a wizardAnswers, prev engine.Config) engine.Config {
	cfg := prev
	cfg.Store.Kind = a.StoreKind
	if prev.Store.Kind != a.StoreKind {
		cfg.Store.Path = ""
	}
	cfg.Devices.Source = a.DeviceSource
	if prev.Devices.Source != a.DeviceSource {
		cfg.Devices.Path = ""
	}
	cfg.Devices.PollInterval = a.PollInterval
	cfg.Feed.Addr = a.FeedAddr
	cfg.Control.Enabled = a.ControlEnabled
	cfg.Log.Level = a.LogLevel
	return cfg
}

func runWizard(a *wizardAnswers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should camera settings be saved?").
				Options(
					huh.NewOption("Files in .camview/local", "file"),
					huh.NewOption("SQLite database in .camview/local", "sqlite"),
					huh.NewOption("Memory (forgotten on exit)", "memory"),
				).
				Value(&a.StoreKind),
			huh.NewSelect[string]().
				Title("Device source").
				Options(
					huh.NewOption("Video4Linux (sysfs)", engine.SourceSysfs),
					huh.NewOption("YAML fixture (.camview/devices.yaml)", engine.SourceFile),
				).
				Value(&a.DeviceSource),
			huh.NewInput().
				Title("Device poll interval (0s disables change detection)").
				Value(&a.PollInterval).
				Validate(validateDuration),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Render feed address (empty disables, e.g. 127.0.0.1:7070)").
				Value(&a.FeedAddr),
			huh.NewConfirm().
				Title("Serve MCP remote control in `camview serve`?").
				Value(&a.ControlEnabled),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&a.LogLevel),
		),
	).Run()
}

func validateDuration(s string) error {
	if s == "" {
		return nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a valid duration (e.g. 2s, 500ms)")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}

	return nil
}

// configDiff renders a unified diff between the current and proposed config.
func configDiff(path string, oldData, newData []byte) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldData)),
		B:        difflib.SplitLines(string(newData)),
		FromFile: path,
		ToFile:   path + " (new)",
		Context:  3,
	}

	return difflib.GetUnifiedDiffString(diff)
}

func runInit(dir string) error {
	d := camdir.New(dir)

	var (
		prev    engine.Config
		oldData []byte
	)
	if d.HasConfig() {
		data, err := os.ReadFile(d.ConfigPath())
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		oldData = data

		// A broken config is replaced, not fixed, so parse errors only
		// lose the pre-filled answers.
		if cfg, err := engine.LoadConfig(d.ConfigPath()); err == nil {
			prev = cfg
		}
	}

	answers := answersFrom(prev)
	if err := runWizard(&answers); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}

	cfg := buildConfig(answers, prev)

	resolved := cfg
	applyDirDefaults(&resolved, d)
	if err := resolved.Validate(); err != nil {
		return err
	}

	newData, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if oldData != nil {
		diff, err := configDiff(d.ConfigPath(), oldData, newData)
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Println("Config unchanged.")
			return nil
		}

		fmt.Println(diff)

		var overwrite bool
		if err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title("Write these changes?").Value(&overwrite),
		)).Run(); err != nil {
			return err
		}
		if !overwrite {
			return nil
		}
	}

	if err := camdir.BootstrapWithConfig(d, newData); err != nil {
		return err
	}

	if cfg.Devices.Source == engine.SourceFile {
		if err := ensureSampleDevices(d); err != nil {
			return err
		}
	}

	fmt.Printf("Wrote %s\n", d.ConfigPath())
	return nil
}

// ensureSampleDevices writes devices.yaml unless it already exists.
func ensureSampleDevices(d camdir.Dir) error {
	if _, err := os.Stat(d.DevicesPath()); err == nil {
		return nil
	}

	if err := os.WriteFile(d.DevicesPath(), []byte(sampleDevices), 0o600); err != nil {
		return fmt.Errorf("write devices fixture: %w", err)
	}
	return nil
}
