package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/germanamz/camview/pkg/camera"
	"github.com/germanamz/camview/pkg/engine"
)

const listTimeout = 10 * time.Second

// runList enumerates cameras once and prints them merged with the persisted
// settings.
func runList(common commonFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	eng, cleanup, err := startEngine(ctx, common)
	if err != nil {
		return err
	}
	defer cleanup()

	sub := eng.Events().Subscribe(16)
	defer eng.Events().Unsubscribe(sub)

	runCtx, stop := context.WithCancel(ctx)
	wait := runBackground(runCtx, eng, "")

	st, listErr := awaitEnumeration(ctx, eng.Session(), sub)

	stop()
	if err := wait(); err != nil {
		return err
	}
	if listErr != nil {
		return listErr
	}

	fmt.Println(renderCameraTable(camera.ListingOf(st)))
	return nil
}

// awaitEnumeration waits for the first enumeration to finish.
func awaitEnumeration(ctx context.Context, sess *engine.Session, sub *engine.Subscription) (*camera.State, error) {
	for {
		if st := sess.Snapshot(); !st.IsInitializingCameraList && len(st.Cameras) > 0 {
			return st, nil
		}

		select {
		case <-ctx.Done():
			// An empty list never leaves a trace in the state, so a quiet
			// timeout with no failure means no cameras.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return sess.Snapshot(), nil
			}
			return nil, ctx.Err()
		case ev := <-sub.C:
			switch ev.Kind {
			case engine.EventEnumerationFailed:
				err, _ := ev.Data.(error)
				return nil, fmt.Errorf("enumerate cameras: %w", err)
			case engine.EventStateChanged:
				if st, ok := ev.Data.(*camera.State); ok && !st.IsInitializingCameraList {
					return st, nil
				}
			}
		}
	}
}

// renderCameraTable renders the listing as a bordered table.
func renderCameraTable(l camera.Listing) string {
	if len(l.Cameras) == 0 {
		return placeholderStyle.Render(camera.MessageNoCameras)
	}

	rows := make([][]string, 0, len(l.Cameras))
	for _, c := range l.Cameras {
		status := "enabled"
		if !c.Enabled {
			status = "disabled"
		}

		var marks string
		if c.Current {
			marks += markCurrent
		}
		if c.LastUsed {
			marks += markLastUsed
		}

		rows = append(rows, []string{
			marks,
			truncate(c.ID, 32),
			truncate(c.Name, 32),
			status,
			strconv.Itoa(c.Settings.Angle) + "°",
			fmtZoom(c.Settings.Zoom) + "x",
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("", "ID", "NAME", "STATUS", "ANGLE", "ZOOM").
		Rows(rows...)

	return t.Render()
}
