/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"fmt"

	"github.com/Seednode/reveal/docstore"
)

// AnswerPatch locks in role's answer. It touches only role's two fields, so
// a partner writing at the same time keeps theirs.
func AnswerPatch(role Role, text string) docstore.Fields {
	return docstore.Fields{
		role.answerField():   text,
		role.finishedField(): true,
	}
}

// AnswerController submits the local partner's answer.
type AnswerController struct {
	store Store
}

func NewAnswerController(store Store) *AnswerController {
	return &AnswerController{store: store}
}

// Submit writes text as role's answer for the current round. snapshot is the
// latest document the caller has seen; nil means the room is not loaded yet.
// Submitting the same text again rewrites the same two fields.
func (c *AnswerController) Submit(ctx context.Context, key string, role Role, snapshot *Document, text string) error {
	if !role.Valid() {
		return ErrNoRole
	}
	if snapshot == nil {
		return ErrNoDocument
	}

	if err := c.store.MergeWrite(ctx, key, AnswerPatch(role, text)); err != nil {
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	return nil
}
