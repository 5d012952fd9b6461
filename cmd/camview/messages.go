package main

import tea "github.com/charmbracelet/bubbletea"

// stateChangedMsg tells the model to re-read the session snapshot.
type stateChangedMsg struct{}

// devicesChangedMsg signals that the device watcher saw a change.
type devicesChangedMsg struct{}

// enumerationFailedMsg carries a failed enumeration, e.g. denied access.
type enumerationFailedMsg struct {
	err error
}

// persistFailedMsg carries a failed settings write.
type persistFailedMsg struct {
	err error
}

// dispatchedMsg is returned by the tea.Cmd that dispatches a camera event.
type dispatchedMsg struct {
	err error
}

// rescanRequestedMsg is returned by the tea.Cmd that requests a rescan.
type rescanRequestedMsg struct {
	err error
}

// programReadyMsg passes the *tea.Program to the model so it can start bridge goroutines.
type programReadyMsg struct {
	program *tea.Program
}
