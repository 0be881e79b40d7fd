package storage

import "errors"

// ErrNotFound matches every NotFoundError through errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError is returned when a node or thread doesn't exist in the store.
type NotFoundError struct {
	Hash   string
	Thread string
}

func (e NotFoundError) Error() string {
	switch {
	case e.Thread != "":
		return "thread not found: " + e.Thread
	case e.Hash != "":
		return "node not found: " + e.Hash
	default:
		return "node not found"
	}
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
