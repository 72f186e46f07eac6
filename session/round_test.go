/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Seednode/reveal/docstore"
)

func TestRollDieRange(t *testing.T) {
	seen := make(map[int]bool)

	for range 600 {
		n, err := RollDie()
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1)
		require.LessOrEqual(t, n, DieSides)
		seen[n] = true
	}

	require.Len(t, seen, DieSides)
}

func TestRollResetsRoundInOneWrite(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()

	require.NoError(t, store.MergeWrite(ctx, "ROOM", docstore.Fields{
		FieldDiceRoll:  2,
		FieldAnswerA:   "old a",
		FieldAnswerB:   "old b",
		FieldFinishedA: true,
		FieldFinishedB: true,
		"extra":        "kept",
	}))
	before := store.mergeCount()

	p := Prompt{Category: "Future", ForA: "qa", ForB: "qb"}
	c := NewRoundController(store, staticPrompts{p}, WithRoller(fixedRoll(6)))

	round, err := c.Roll(ctx, "ROOM")
	require.NoError(t, err)
	require.Equal(t, Round{Roll: 6, Prompt: p}, round)
	require.Equal(t, before+1, store.mergeCount())

	f, ok, err := store.Get(ctx, "ROOM")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "kept", f["extra"])

	doc := Decode(f)
	require.Equal(t, Document{DiceRoll: 6, Category: "Future", QuestionA: "qa", QuestionB: "qb"}, doc)
	require.False(t, c.Busy())
}

func TestRollRejectsOutOfRange(t *testing.T) {
	store := newFlakyStore()

	for _, n := range []int{0, 7, -1} {
		c := NewRoundController(store, staticPrompts{}, WithRoller(fixedRoll(n)))

		_, err := c.Roll(context.Background(), "ROOM")
		require.Error(t, err)
	}
	require.Zero(t, store.mergeCount())
}

func TestRollWritesNothingWhileFetchPending(t *testing.T) {
	store := newFlakyStore()
	prompts := newGatedPrompts(Prompt{Category: "Trust", ForA: "qa", ForB: "qb"})
	c := NewRoundController(store, prompts, WithRoller(fixedRoll(1)))

	done := make(chan error, 1)
	go func() {
		_, err := c.Roll(context.Background(), "ROOM")
		done <- err
	}()

	<-prompts.started
	require.True(t, c.Busy())
	require.Zero(t, store.mergeCount())

	close(prompts.release)
	require.NoError(t, <-done)
	require.False(t, c.Busy())
	require.Equal(t, 1, store.mergeCount())
}

func TestRollCancelledBeforeWrite(t *testing.T) {
	store := newFlakyStore()
	prompts := newGatedPrompts(Prompt{})
	c := NewRoundController(store, prompts, WithRoller(fixedRoll(3)))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := c.Roll(ctx, "ROOM")
		done <- err
	}()

	<-prompts.started
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Zero(t, store.mergeCount())
}

func TestRollWriteFailure(t *testing.T) {
	store := newFlakyStore()
	store.setFailMerge(true)
	c := NewRoundController(store, staticPrompts{}, WithRoller(fixedRoll(2)))

	_, err := c.Roll(context.Background(), "ROOM")
	require.ErrorIs(t, err, ErrWriteFailed)
	require.ErrorIs(t, err, errStoreDown)
	require.False(t, c.Busy())
}

func TestRollerError(t *testing.T) {
	boom := errors.New("no entropy")
	c := NewRoundController(newFlakyStore(), staticPrompts{}, WithRoller(func() (int, error) {
		return 0, boom
	}))

	_, err := c.Roll(context.Background(), "ROOM")
	require.ErrorIs(t, err, boom)
}
