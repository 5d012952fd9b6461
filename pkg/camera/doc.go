// Package camera holds the camera session state machine: the entities a
// session tracks (cameras, per-camera view settings, the disabled set) and the
// pure reducer that reconciles them against device enumerations and user
// actions. The package performs no I/O; hosts feed it events one at a time and
// persist or render whatever it returns.
package camera
