// Package speccache caches compiled diagram specs against a key derived
// from the diagram definition and compile options, so repeated requests
// for the same diagram skip recompilation. It mirrors the teacher's
// pluggable Store[S] interface (graph/store/store.go), narrowed to one
// value type and one operation pair.
package speccache

import (
	"context"
	"errors"

	"github.com/rlupton/weaver/spec"
)

// ErrNotFound is returned when a requested cache key has no entry.
var ErrNotFound = errors.New("speccache: not found")

// Store persists compiled WeaverSpec values keyed by a caller-supplied
// cache key (typically a hash of the definition and compile options).
type Store interface {
	Get(ctx context.Context, key string) (spec.WeaverSpec, error)
	Put(ctx context.Context, key string, s spec.WeaverSpec) error
	Close() error
}
