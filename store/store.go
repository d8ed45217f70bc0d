// Package store is the persistence collaborator. It keeps named collections as
// whole documents and only promises that Get and Set on one name are atomic;
// read-modify-write serialization is done by Collection.
package store

import (
	"context"
	"fmt"
	"sync"

	"posterminal/models"
)

type Name string

const (
	Items           Name = "items"
	PendingOrders   Name = "pendingOrders"
	CompletedOrders Name = "completedOrders"
	Sessions        Name = "sessions"
)

// Store holds encoded collections. Get returns nil data for a collection that
// was never written.
type Store interface {
	Get(ctx context.Context, name Name) ([]byte, error)
	Set(ctx context.Context, name Name, data []byte) error
	Close(ctx context.Context) error
}

// Unavailable wraps a backend fault as models.ErrStoreUnavailable.
func Unavailable(op string, name Name, err error) error {
	return fmt.Errorf("%w: %s %s: %v", models.ErrStoreUnavailable, op, name, err)
}

// Collection is a typed view over one named collection. Mutate and View lock
// it; Load and Save expect the caller to hold the lock already, which lets an
// operation span two collections.
type Collection[T any] struct {
	sync.RWMutex
	backend Store
	name    Name
}

func NewCollection[T any](backend Store, name Name) *Collection[T] {
	return &Collection[T]{backend: backend, name: name}
}

func (c *Collection[T]) Name() Name { return c.name }

func (c *Collection[T]) Load(ctx context.Context) (T, error) {
	var v T
	data, err := c.backend.Get(ctx, c.name)
	if err != nil {
		return v, err
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := Decode(data, &v); err != nil {
		return v, Unavailable("decode", c.name, err)
	}
	return v, nil
}

func (c *Collection[T]) Save(ctx context.Context, v T) error {
	data, err := Encode(v)
	if err != nil {
		return Unavailable("encode", c.name, err)
	}
	return c.backend.Set(ctx, c.name, data)
}

// View loads the collection under a read lock.
func (c *Collection[T]) View(ctx context.Context) (T, error) {
	c.RLock()
	defer c.RUnlock()
	return c.Load(ctx)
}

// Mutate runs fn on the current value under the write lock and saves the
// result. Nothing is saved when fn fails.
func (c *Collection[T]) Mutate(ctx context.Context, fn func(*T) error) error {
	c.Lock()
	defer c.Unlock()

	v, err := c.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&v); err != nil {
		return err
	}
	return c.Save(ctx, v)
}
