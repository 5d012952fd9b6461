package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/germanamz/camview/pkg/camera"
	"github.com/germanamz/camview/pkg/devices"
	"github.com/germanamz/camview/pkg/engine"
)

// zoomStep is the zoom change per keypress.
const zoomStep = 0.25

// cameraSession is the part of engine.Session the TUI drives.
type cameraSession interface {
	Snapshot() *camera.State
	Dispatch(ctx context.Context, ev camera.Event) (*camera.State, error)
	Rescan(ctx context.Context) error
}

// appModel is the root bubbletea model.
type appModel struct {
	ctx          context.Context
	sess         cameraSession
	events       *engine.EventBus
	state        *camera.State
	cursor       int
	keys         keyMap
	help         help.Model
	showHelp     bool
	statusBar    statusBarModel
	cancelBridge context.CancelFunc
	width        int
	height       int
}

func newAppModel(ctx context.Context, sess cameraSession, events *engine.EventBus) appModel {
	m := appModel{
		ctx:    ctx,
		sess:   sess,
		events: events,
		keys:   newKeyMap(),
		help:   help.New(),
	}
	m.refresh()
	return m
}

func (m appModel) Init() tea.Cmd { return nil }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		initMarkdownRenderer(m.width - 4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case programReadyMsg:
		if m.events != nil {
			m.cancelBridge = startBridge(m.ctx, msg.program, m.events)
		}
		return m, nil

	case stateChangedMsg:
		m.refresh()
		return m, nil

	case devicesChangedMsg:
		m.statusBar.setNotice("device change detected", false)
		return m, nil

	case enumerationFailedMsg:
		m.statusBar.setNotice(enumerationNotice(msg.err), true)
		m.refresh()
		return m, nil

	case persistFailedMsg:
		m.statusBar.setNotice("settings not saved: "+errText(msg.err), true)
		return m, nil

	case dispatchedMsg:
		if msg.err != nil && m.ctx.Err() == nil {
			m.statusBar.setNotice(msg.err.Error(), true)
		}
		m.refresh()
		return m, nil

	case rescanRequestedMsg:
		if msg.err != nil && m.ctx.Err() == nil {
			m.statusBar.setNotice(msg.err.Error(), true)
		} else {
			m.statusBar.setNotice("rescanning cameras", false)
		}
		return m, nil
	}

	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancelBridge != nil {
			m.cancelBridge()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.state.Cameras)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if c, ok := m.highlighted(); ok {
			return m, m.dispatch(camera.SelectCamera{ID: c.ID})
		}
	case key.Matches(msg, m.keys.Toggle):
		if c, ok := m.highlighted(); ok {
			return m, m.dispatch(camera.ToggleCamera{ID: c.ID})
		}
	case key.Matches(msg, m.keys.RotateCW):
		return m, m.dispatch(camera.RotateCamera{Direction: camera.CW})
	case key.Matches(msg, m.keys.RotateCCW):
		return m, m.dispatch(camera.RotateCamera{Direction: camera.CCW})
	case key.Matches(msg, m.keys.ZoomIn):
		return m, m.dispatch(camera.ZoomCamera{Step: zoomStep})
	case key.Matches(msg, m.keys.ZoomOut):
		return m, m.dispatch(camera.ZoomCamera{Step: -zoomStep})
	case key.Matches(msg, m.keys.ResetZoom):
		return m, m.dispatch(camera.ResetZoomCamera{})
	case key.Matches(msg, m.keys.Rescan):
		return m, m.rescan()
	}

	return m, nil
}

// refresh re-reads the session snapshot and keeps the cursor in range.
func (m *appModel) refresh() {
	m.state = m.sess.Snapshot()
	if m.state == nil {
		m.state = camera.NewState()
	}

	if m.cursor >= len(m.state.Cameras) {
		m.cursor = max(len(m.state.Cameras)-1, 0)
	}

	m.statusBar.cameras = len(m.state.Cameras)
	m.statusBar.enabled = 0
	for _, c := range m.state.Cameras {
		if c.Enabled {
			m.statusBar.enabled++
		}
	}
}

func (m appModel) highlighted() (camera.Camera, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Cameras) {
		return camera.Camera{}, false
	}
	return m.state.Cameras[m.cursor], true
}

func (m appModel) dispatch(ev camera.Event) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		_, err := sess.Dispatch(ctx, ev)
		return dispatchedMsg{err: err}
	}
}

func (m appModel) rescan() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		return rescanRequestedMsg{err: sess.Rescan(ctx)}
	}
}

func (m appModel) View() string {
	if m.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left,
			renderMarkdown(helpMarkdown),
			dimStyle.Render("press ? to close"),
		)
	}

	listWidth := 36
	if m.width > 0 {
		listWidth = min(max(m.width/3, 24), 48)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).Render(m.listView(listWidth)),
		m.previewView(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("camview"),
		"",
		body,
		"",
		m.statusBar.View(),
		m.help.View(m.keys),
	)
}

func (m appModel) listView(width int) string {
	if len(m.state.Cameras) == 0 {
		if m.state.IsInitializingCameraList {
			return dimStyle.Render("  detecting…")
		}
		return dimStyle.Render("  no cameras")
	}

	var sb strings.Builder
	for i, c := range m.state.Cameras {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render(markCursor) + " "
		}

		mark := markIdle
		if m.state.CurrentCamera != nil && m.state.CurrentCamera.ID == c.ID {
			mark = currentStyle.Render(markCurrent)
		}

		name := truncate(cmpName(c), width-8)
		switch {
		case !c.Enabled:
			name = disabledStyle.Render(name)
		case mark != markIdle:
			name = currentStyle.Render(name)
		}

		last := ""
		if c.ID == m.state.LastUsedCamera {
			last = " " + markerStyle.Render(markLastUsed)
		}

		fmt.Fprintf(&sb, "%s%s %s%s\n", cursor, mark, name, last)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m appModel) previewView() string {
	v := camera.ViewOf(m.state)
	if !v.Live() {
		return previewStyle.Render(placeholderStyle.Render(v.Message))
	}

	lines := []string{
		titleStyle.Render(truncate(v.CameraName, 40)),
		"",
		arrowStyle.Render(rotationArrow(v.Angle)) + fmt.Sprintf("  %d°", v.Angle),
		fmt.Sprintf("zoom %sx", fmtZoom(v.Zoom)),
		dimStyle.Render(v.Transform),
	}
	return previewStyle.Render(strings.Join(lines, "\n"))
}

// rotationArrow points where the top of the picture ends up.
func rotationArrow(angle int) string {
	switch ((angle % 360) + 360) % 360 {
	case 90:
		return "→"
	case 180:
		return "↓"
	case 270:
		return "←"
	default:
		return "↑"
	}
}

func cmpName(c camera.Camera) string {
	if c.Name == "" {
		return c.ID
	}
	return c.Name
}

func enumerationNotice(err error) string {
	if errors.Is(err, devices.ErrPermissionDenied) {
		return "camera access denied, fix permissions and press s"
	}
	return "camera enumeration failed: " + errText(err)
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

const helpMarkdown = `# camview

Pick a camera, then rotate and zoom it. Settings are remembered per camera.

| Key | Action |
|---|---|
| ↑/↓, k/j | move the cursor |
| enter | make the highlighted camera current |
| space | enable or disable the highlighted camera |
| r / R | rotate clockwise / counter-clockwise |
| + / - | zoom in / out (1x to 4x) |
| 0 | reset zoom |
| s | rescan cameras |
| q | quit |

The current camera cannot be disabled. Disabled cameras are skipped when
camview picks a camera after a rescan.
`
