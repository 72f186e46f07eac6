/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package docstore is a keyed document store with atomic merge-writes and a
// change feed that echoes every write back to every subscriber, the writer
// included.
package docstore

import (
	"context"
	"errors"
	"maps"
	"sync"
)

// Fields is one document, or a partial set of fields to merge into one.
type Fields map[string]any

// Clone returns a shallow copy. Field values are scalars.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

var ErrEmptyKey = errors.New("document key is required")

// Persister is an optional durable backing for Memory.
type Persister interface {
	Load(ctx context.Context, key string) (Fields, bool, error)
	Save(ctx context.Context, key string, doc Fields) error
}

// Memory holds documents in memory, optionally writing through to a Persister.
type Memory struct {
	mu      sync.Mutex
	docs    map[string]Fields
	subs    map[string]map[*subscriber]struct{}
	persist Persister
	logf    func(format string, args ...any)
}

type Option func(*Memory)

// WithPersister loads absent documents from p and saves every write to it.
func WithPersister(p Persister) Option {
	return func(m *Memory) {
		m.persist = p
	}
}

// WithLogger sets the function used for verbose output.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(m *Memory) {
		m.logf = logf
	}
}

func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		docs: make(map[string]Fields),
		subs: make(map[string]map[*subscriber]struct{}),
		logf: func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// loadLocked returns the current document for key. m.mu must be held.
func (m *Memory) loadLocked(ctx context.Context, key string) (Fields, bool, error) {
	if doc, ok := m.docs[key]; ok {
		return doc, true, nil
	}
	if m.persist == nil {
		return nil, false, nil
	}

	doc, ok, err := m.persist.Load(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		m.docs[key] = doc
	}
	return doc, ok, nil
}

// Get is a point read. The returned Fields are a copy.
func (m *Memory) Get(ctx context.Context, key string) (Fields, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok, err := m.loadLocked(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return doc.Clone(), true, nil
}

// CreateIfAbsent stores defaults under key unless a document already exists.
func (m *Memory) CreateIfAbsent(ctx context.Context, key string, defaults Fields) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok, err := m.loadLocked(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	return m.commitLocked(ctx, key, defaults.Clone())
}

// MergeWrite sets every field in patch and leaves all other fields untouched.
// A missing document is created from the patch alone.
func (m *Memory) MergeWrite(ctx context.Context, key string, patch Fields) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, _, err := m.loadLocked(ctx, key)
	if err != nil {
		return err
	}

	next := make(Fields, len(current)+len(patch))
	maps.Copy(next, current)
	maps.Copy(next, patch)

	return m.commitLocked(ctx, key, next)
}

// commitLocked persists doc, makes it current and notifies subscribers.
func (m *Memory) commitLocked(ctx context.Context, key string, doc Fields) error {
	if m.persist != nil {
		if err := m.persist.Save(ctx, key, doc); err != nil {
			return err
		}
	}

	m.docs[key] = doc

	for s := range m.subs[key] {
		s.offer(doc.Clone())
	}

	m.logf("STORE: Wrote %s (%d subscriber(s))", key, len(m.subs[key]))

	return nil
}

// Subscribe calls onChange with the full document after every change to key,
// and once immediately if the document already exists. Calls for one
// subscription are serialized; intermediate states may be skipped, the latest
// never is. The returned function cancels the subscription.
func (m *Memory) Subscribe(ctx context.Context, key string, onChange func(Fields)) (func(), error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := newSubscriber(onChange)

	m.mu.Lock()
	doc, ok, err := m.loadLocked(ctx, key)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if m.subs[key] == nil {
		m.subs[key] = make(map[*subscriber]struct{})
	}
	m.subs[key][s] = struct{}{}
	if ok {
		s.offer(doc.Clone())
	}
	m.mu.Unlock()

	go s.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[key], s)
			if len(m.subs[key]) == 0 {
				delete(m.subs, key)
			}
			m.mu.Unlock()

			close(s.done)
		})
	}, nil
}

// Subscribers reports how many live subscriptions key has.
func (m *Memory) Subscribers(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.subs[key])
}

type subscriber struct {
	onChange func(Fields)

	mu      sync.Mutex
	pending Fields
	wake    chan struct{}
	done    chan struct{}
}

func newSubscriber(onChange func(Fields)) *subscriber {
	return &subscriber{
		onChange: onChange,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// offer replaces any undelivered document with doc.
func (s *subscriber) offer(doc Fields) {
	s.mu.Lock()
	s.pending = doc
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			s.mu.Lock()
			doc := s.pending
			s.pending = nil
			s.mu.Unlock()

			if doc == nil {
				continue
			}

			select {
			case <-s.done:
				return
			default:
			}

			s.onChange(doc)
		}
	}
}
