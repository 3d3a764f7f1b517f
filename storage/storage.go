package storage

import (
	"context"
	"errors"
)

/*
Package storage provides the object stores the recorder archives samples to.
Objects are addressed by slash-separated keys such as "shapes/000001.jsonl.zst"
and listed by key prefix.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when a requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Provider is the interface implemented by object stores.
type Provider interface {
	// Put stores data under id, replacing any existing object.
	Put(ctx context.Context, id string, data []byte) error

	// Get returns the object stored under id, or ErrObjectNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// List returns the keys starting with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object stored under id. Deleting a missing object
	// is not an error.
	Delete(ctx context.Context, id string) error
}
