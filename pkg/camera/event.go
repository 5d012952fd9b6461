package camera

// Event is an input to Reduce.
type Event interface {
	event()
}

// EnumerationKind tells the reducer how to seed the current camera.
type EnumerationKind int

const (
	// Initial is the first successful enumeration of a session.
	Initial EnumerationKind = iota
	// Refresh follows a device-change notification.
	Refresh
)

func (k EnumerationKind) String() string {
	switch k {
	case Initial:
		return "initial"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Direction is a rotation direction.
type Direction string

const (
	CW  Direction = "cw"
	CCW Direction = "ccw"
)

// ParseDirection accepts "cw" or "ccw".
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case CW, CCW:
		return Direction(s), true
	default:
		return "", false
	}
}

// BeginEnumeration marks the start of a device enumeration.
type BeginEnumeration struct{}

// EnumerationSucceeded carries the device list of a finished enumeration.
type EnumerationSucceeded struct {
	Kind    EnumerationKind
	Devices []Device
}

// SelectCamera makes a listed, enabled camera current.
type SelectCamera struct {
	ID string
}

// ToggleCamera flips a camera between enabled and disabled.
type ToggleCamera struct {
	ID string
}

// RotateCamera rotates the current camera by one step.
type RotateCamera struct {
	Direction Direction
}

// ZoomCamera changes the current camera's zoom by Step.
type ZoomCamera struct {
	Step float64
}

// ResetZoomCamera sets the current camera's zoom back to 1.
type ResetZoomCamera struct{}

func (BeginEnumeration) event()     {}
func (EnumerationSucceeded) event() {}
func (SelectCamera) event()         {}
func (ToggleCamera) event()         {}
func (RotateCamera) event()         {}
func (ZoomCamera) event()           {}
func (ResetZoomCamera) event()      {}
