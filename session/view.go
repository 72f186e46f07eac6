/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/Seednode/reveal/docstore"
)

// View owns the one live subscription a client holds for its room. Close it
// on every exit path.
type View struct {
	key         string
	unsubscribe func()

	mu        sync.Mutex
	latest    *Document
	closed    bool
	snapshots chan Document
	closeOnce sync.Once
}

// Watch opens a view on key, creating the room's document with defaults if
// nobody has yet. Any store failure during setup is ErrStoreUnavailable.
func Watch(ctx context.Context, store Store, key string) (*View, error) {
	_, ok, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStoreUnavailable, key, err)
	}

	if !ok {
		if err := store.CreateIfAbsent(ctx, key, DefaultFields()); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", ErrStoreUnavailable, key, err)
		}
	}

	v := &View{
		key:       key,
		snapshots: make(chan Document, 1),
	}

	unsubscribe, err := store.Subscribe(ctx, key, v.receive)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrStoreUnavailable, key, err)
	}
	v.unsubscribe = unsubscribe

	return v, nil
}

func (v *View) receive(f docstore.Fields) {
	doc := Decode(f)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}

	v.latest = &doc

	select {
	case <-v.snapshots:
	default:
	}
	v.snapshots <- doc
}

func (v *View) Key() string {
	return v.key
}

// Snapshots delivers the newest document after each change. Only the latest
// undelivered snapshot is kept. The channel is never closed.
func (v *View) Snapshots() <-chan Document {
	return v.snapshots
}

// Latest returns a copy of the newest snapshot, or nil before the first one.
func (v *View) Latest() *Document {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.latest == nil {
		return nil
	}
	doc := *v.latest
	return &doc
}

// Phase derives role's phase from the newest snapshot.
func (v *View) Phase(role Role) Phase {
	return DerivePhase(v.Latest(), role)
}

// Close tears down the subscription. It is safe to call more than once.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		v.mu.Unlock()

		v.unsubscribe()
	})
}
