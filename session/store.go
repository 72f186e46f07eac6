/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"

	"github.com/Seednode/reveal/docstore"
)

// Store is the shared document store both partners write to. Writes are
// field-level merges, last writer wins per field, and every subscriber
// (the writer included) is sent the full document after each change.
type Store interface {
	Get(ctx context.Context, key string) (docstore.Fields, bool, error)
	CreateIfAbsent(ctx context.Context, key string, defaults docstore.Fields) error
	MergeWrite(ctx context.Context, key string, patch docstore.Fields) error
	Subscribe(ctx context.Context, key string, onChange func(docstore.Fields)) (func(), error)
}

var (
	_ Store = (*docstore.Memory)(nil)
	_ Store = (*docstore.Remote)(nil)
)

// Prompt is one question bundle: a category and a question for each partner.
type Prompt struct {
	Category string
	ForA     string
	ForB     string
}

// PromptSource looks up the prompt for a roll of 1 to 6. Implementations
// absorb their own failures and return a fallback prompt instead.
type PromptSource interface {
	FetchPrompt(ctx context.Context, roll int) Prompt
}
