package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("kvstore: store is closed")

// Kind names a store implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
)

// Kinds lists the supported store kinds.
func Kinds() []Kind {
	return []Kind{KindFile, KindSQLite, KindMemory}
}

// Store is the common surface of every implementation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open returns the store of the given kind. path is a directory for file
// stores and a database file for sqlite; memory ignores it.
func Open(kind Kind, path string) (Store, error) {
	switch kind {
	case KindMemory:
		return NewMemory(), nil
	case KindFile:
		f, err := NewFile(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindSQLite:
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("kvstore: unknown store kind %q", kind)
	}
}
