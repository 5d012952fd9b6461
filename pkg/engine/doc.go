// Package engine is the composition root that assembles the camera state
// machine, its device source and its persistence from configuration and
// exposes them through a frontend-agnostic API. Frontends (TUI, render feed,
// remote control) interact with Engine and Session types, observe activity
// through an EventBus, and never drive the reducer directly.
package engine
