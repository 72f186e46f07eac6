/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Seednode/reveal/docstore"
)

func TestAnswerPatchTouchesOnlyOwnFields(t *testing.T) {
	require.Equal(t, docstore.Fields{FieldAnswerA: "hi", FieldFinishedA: true}, AnswerPatch(RoleA, "hi"))
	require.Equal(t, docstore.Fields{FieldAnswerB: "yo", FieldFinishedB: true}, AnswerPatch(RoleB, "yo"))
}

func TestSubmitMergeIsolation(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	require.NoError(t, store.MergeWrite(ctx, "ROOM", RoundPatch(1, Prompt{Category: "Trust", ForA: "qa", ForB: "qb"})))

	c := NewAnswerController(store)
	snapshot := &Document{DiceRoll: 1}

	require.NoError(t, c.Submit(ctx, "ROOM", RoleA, snapshot, "mine"))
	require.NoError(t, c.Submit(ctx, "ROOM", RoleB, snapshot, "theirs"))

	f, _, err := store.Get(ctx, "ROOM")
	require.NoError(t, err)

	doc := Decode(f)
	require.Equal(t, "mine", doc.AnswerA)
	require.Equal(t, "theirs", doc.AnswerB)
	require.True(t, doc.BothFinished())
	require.Equal(t, "qa", doc.QuestionA)
	require.Equal(t, 1, doc.DiceRoll)
}

func TestSubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	c := NewAnswerController(store)
	snapshot := &Document{DiceRoll: 4}

	require.NoError(t, c.Submit(ctx, "ROOM", RoleB, snapshot, "same"))
	first, _, err := store.Get(ctx, "ROOM")
	require.NoError(t, err)

	require.NoError(t, c.Submit(ctx, "ROOM", RoleB, snapshot, "same"))
	second, _, err := store.Get(ctx, "ROOM")
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestSubmitPreconditions(t *testing.T) {
	store := newFlakyStore()
	c := NewAnswerController(store)

	err := c.Submit(context.Background(), "ROOM", RoleNone, &Document{}, "x")
	require.ErrorIs(t, err, ErrNoRole)
	require.ErrorIs(t, err, ErrMissingPrecondition)

	err = c.Submit(context.Background(), "ROOM", RoleA, nil, "x")
	require.ErrorIs(t, err, ErrNoDocument)
	require.ErrorIs(t, err, ErrMissingPrecondition)

	require.Zero(t, store.mergeCount())
}

func TestSubmitFailure(t *testing.T) {
	store := newFlakyStore()
	store.setFailMerge(true)
	c := NewAnswerController(store)

	err := c.Submit(context.Background(), "ROOM", RoleA, &Document{DiceRoll: 2}, "kept")
	require.ErrorIs(t, err, ErrSubmissionFailed)
	require.ErrorIs(t, err, ErrWriteFailed)
	require.ErrorIs(t, err, errStoreDown)

	store.setFailMerge(false)
	require.NoError(t, c.Submit(context.Background(), "ROOM", RoleA, &Document{DiceRoll: 2}, "kept"))
}
