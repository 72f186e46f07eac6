/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Seednode/reveal/docstore"
)

var errStoreDown = errors.New("store down")

// flakyStore wraps a Memory and fails operations on request.
type flakyStore struct {
	*docstore.Memory

	mu        sync.Mutex
	failGet   bool
	failMerge bool
	merges    []docstore.Fields
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Memory: docstore.NewMemory()}
}

func (s *flakyStore) Get(ctx context.Context, key string) (docstore.Fields, bool, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()

	if fail {
		return nil, false, errStoreDown
	}
	return s.Memory.Get(ctx, key)
}

func (s *flakyStore) MergeWrite(ctx context.Context, key string, patch docstore.Fields) error {
	s.mu.Lock()
	fail := s.failMerge
	s.merges = append(s.merges, patch.Clone())
	s.mu.Unlock()

	if fail {
		return errStoreDown
	}
	return s.Memory.MergeWrite(ctx, key, patch)
}

func (s *flakyStore) setFailMerge(fail bool) {
	s.mu.Lock()
	s.failMerge = fail
	s.mu.Unlock()
}

func (s *flakyStore) mergeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.merges)
}

type staticPrompts struct {
	prompt Prompt
}

func (p staticPrompts) FetchPrompt(context.Context, int) Prompt {
	return p.prompt
}

// gatedPrompts blocks every fetch until release is closed.
type gatedPrompts struct {
	started chan struct{}
	release chan struct{}
	prompt  Prompt
}

func newGatedPrompts(p Prompt) *gatedPrompts {
	return &gatedPrompts{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		prompt:  p,
	}
}

func (p *gatedPrompts) FetchPrompt(ctx context.Context, _ int) Prompt {
	p.started <- struct{}{}

	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return p.prompt
}

func fixedRoll(n int) Roller {
	return func() (int, error) {
		return n, nil
	}
}

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond
