// Package control exposes the camera session as MCP tools so that other
// processes can select, toggle, rotate and zoom cameras remotely.
package control
