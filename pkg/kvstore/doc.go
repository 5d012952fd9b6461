// Package kvstore provides the key-value byte stores camera sessions persist
// into: an in-memory store for tests and ephemeral runs, a directory of files,
// and a SQLite database.
package kvstore
