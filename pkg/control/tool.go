package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/germanamz/camview/pkg/camera"
)

// Handler executes a tool with the given JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool represents an executable tool with a name, description, JSON Schema, and handler.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Controller is the part of the camera session the tools drive.
type Controller interface {
	Snapshot() *camera.State
	Dispatch(ctx context.Context, ev camera.Event) (*camera.State, error)
	Rescan(ctx context.Context) error
}

const (
	emptySchema = `{"type":"object","properties":{}}`
	idSchema    = `{"type":"object","properties":{"id":{"type":"string","description":"Camera id as returned by list_cameras"}},"required":["id"]}`
	dirSchema   = `{"type":"object","properties":{"direction":{"type":"string","enum":["cw","ccw"],"description":"Quarter turn clockwise or counter-clockwise"}},"required":["direction"]}`
	stepSchema  = `{"type":"object","properties":{"step":{"type":"number","description":"Zoom change; the result is clamped to [1, 4]"}},"required":["step"]}`
)

// Tools returns the camera tools bound to c.
func Tools(c Controller) []Tool {
	return []Tool{
		{
			Name:        "list_cameras",
			Description: "List connected cameras with their enabled flag, settings and the current view.",
			InputSchema: json.RawMessage(emptySchema),
			Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
				return marshal(camera.ListingOf(c.Snapshot()))
			},
		},
		{
			Name:        "select_camera",
			Description: "Make a camera current. Disabled or unknown cameras are ignored.",
			InputSchema: json.RawMessage(idSchema),
			Handler: dispatch(c, func(in idInput) (camera.Event, error) {
				return camera.SelectCamera{ID: in.ID}, nil
			}),
		},
		{
			Name:        "toggle_camera",
			Description: "Enable or disable a camera. The current camera cannot be toggled.",
			InputSchema: json.RawMessage(idSchema),
			Handler: dispatch(c, func(in idInput) (camera.Event, error) {
				return camera.ToggleCamera{ID: in.ID}, nil
			}),
		},
		{
			Name:        "rotate_camera",
			Description: "Rotate the current camera by a quarter turn.",
			InputSchema: json.RawMessage(dirSchema),
			Handler: dispatch(c, func(in dirInput) (camera.Event, error) {
				d, ok := camera.ParseDirection(in.Direction)
				if !ok {
					return nil, fmt.Errorf("direction must be cw or ccw, got %q", in.Direction)
				}
				return camera.RotateCamera{Direction: d}, nil
			}),
		},
		{
			Name:        "zoom_camera",
			Description: "Change the current camera's zoom by step.",
			InputSchema: json.RawMessage(stepSchema),
			Handler: dispatch(c, func(in stepInput) (camera.Event, error) {
				if in.Step == nil {
					return nil, errors.New("step is required")
				}
				if math.IsInf(*in.Step, 0) || math.IsNaN(*in.Step) {
					return nil, errors.New("step must be finite")
				}
				return camera.ZoomCamera{Step: *in.Step}, nil
			}),
		},
		{
			Name:        "reset_zoom",
			Description: "Reset the current camera's zoom to 1.",
			InputSchema: json.RawMessage(emptySchema),
			Handler: dispatch(c, func(struct{}) (camera.Event, error) {
				return camera.ResetZoomCamera{}, nil
			}),
		},
		{
			Name:        "rescan_cameras",
			Description: "Enumerate cameras again, e.g. after granting access or plugging one in.",
			InputSchema: json.RawMessage(emptySchema),
			Handler: func(ctx context.Context, _ json.RawMessage) (string, error) {
				if err := c.Rescan(ctx); err != nil {
					return "", err
				}
				return marshal(camera.ViewOf(c.Snapshot()))
			},
		},
	}
}

type idInput struct {
	ID string `json:"id"`
}

type dirInput struct {
	Direction string `json:"direction"`
}

type stepInput struct {
	Step *float64 `json:"step"`
}

// dispatch decodes the tool input, builds an event from it and returns the
// resulting view.
func dispatch[T any](c Controller, build func(T) (camera.Event, error)) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var in T
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}
		}

		ev, err := build(in)
		if err != nil {
			return "", err
		}

		st, err := c.Dispatch(ctx, ev)
		if err != nil {
			return "", err
		}
		return marshal(camera.ViewOf(st))
	}
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("control: marshal result: %w", err)
	}
	return string(data), nil
}
