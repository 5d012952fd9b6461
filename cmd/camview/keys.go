package main

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding the camera view reacts to.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	Toggle    key.Binding
	RotateCW  key.Binding
	RotateCCW key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	ResetZoom key.Binding
	Rescan    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "enable/disable")),
		RotateCW:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rotate ↻")),
		RotateCCW: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rotate ↺")),
		ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		ResetZoom: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset zoom")),
		Rescan:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "rescan")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Toggle, k.RotateCW, k.ZoomIn, k.ZoomOut, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Toggle},
		{k.RotateCW, k.RotateCCW, k.ZoomIn, k.ZoomOut, k.ResetZoom},
		{k.Rescan, k.Help, k.Quit},
	}
}
