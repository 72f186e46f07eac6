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

func phaseIs(v *View, role Role, want Phase) func() bool {
	return func() bool {
		return v.Phase(role) == want
	}
}

func TestWatchCreatesDefaultDocument(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	v, err := Watch(ctx, store, "AB12CD")
	require.NoError(t, err)
	defer v.Close()

	f, ok, err := store.Get(ctx, "AB12CD")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, DefaultFields(), f)

	require.Eventually(t, phaseIs(v, RoleA, NoRoundYet), waitFor, tick)
	require.Equal(t, "AB12CD", v.Key())
}

func TestWatchKeepsExistingDocument(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	require.NoError(t, store.MergeWrite(ctx, "ROOM", docstore.Fields{FieldDiceRoll: 5, FieldCategory: "Wildcard"}))

	v, err := Watch(ctx, store, "ROOM")
	require.NoError(t, err)
	defer v.Close()

	require.Eventually(t, func() bool { return v.Latest() != nil }, waitFor, tick)

	doc := v.Latest()
	require.Equal(t, 5, doc.DiceRoll)
	require.Equal(t, "Wildcard", doc.Category)
	require.Equal(t, Answering, v.Phase(RoleB))
}

func TestWatchStoreUnavailable(t *testing.T) {
	store := newFlakyStore()
	store.failGet = true

	_, err := Watch(context.Background(), store, "ROOM")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, err, errStoreDown)
	require.Zero(t, store.Subscribers("ROOM"))
}

func TestViewSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	v, err := Watch(ctx, store, "ROOM")
	require.NoError(t, err)
	defer v.Close()

	rounds := NewRoundController(store, staticPrompts{Prompt{Category: "Trust", ForA: "qa", ForB: "qb"}}, WithRoller(fixedRoll(1)))
	_, err = rounds.Roll(ctx, "ROOM")
	require.NoError(t, err)
	require.Eventually(t, phaseIs(v, RoleA, Answering), waitFor, tick)

	answers := NewAnswerController(store)
	require.NoError(t, answers.Submit(ctx, "ROOM", RoleA, v.Latest(), "done"))
	require.Eventually(t, phaseIs(v, RoleA, WaitingForPartner), waitFor, tick)
}

func TestViewCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	v, err := Watch(ctx, store, "ROOM")
	require.NoError(t, err)
	require.Equal(t, 1, store.Subscribers("ROOM"))

	v.Close()
	v.Close()
	require.Zero(t, store.Subscribers("ROOM"))

	before := v.Latest()
	require.NoError(t, store.MergeWrite(ctx, "ROOM", docstore.Fields{FieldDiceRoll: 2}))
	require.Equal(t, before, v.Latest())
}

func TestTwoPartnersPlayARound(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	a, err := Watch(ctx, store, "AB12CD")
	require.NoError(t, err)
	defer a.Close()

	b, err := Watch(ctx, store, "AB12CD")
	require.NoError(t, err)
	defer b.Close()

	require.Eventually(t, phaseIs(a, RoleA, NoRoundYet), waitFor, tick)
	require.Eventually(t, phaseIs(b, RoleB, NoRoundYet), waitFor, tick)

	p := Prompt{Category: "Memories", ForA: "favorite trip?", ForB: "partner's favorite trip?"}
	_, err = NewRoundController(store, staticPrompts{p}, WithRoller(fixedRoll(2))).Roll(ctx, "AB12CD")
	require.NoError(t, err)

	require.Eventually(t, phaseIs(a, RoleA, Answering), waitFor, tick)
	require.Eventually(t, phaseIs(b, RoleB, Answering), waitFor, tick)
	require.Equal(t, p.ForA, a.Latest().QuestionFor(RoleA))
	require.Equal(t, p.ForB, b.Latest().QuestionFor(RoleB))

	answers := NewAnswerController(store)

	require.NoError(t, answers.Submit(ctx, "AB12CD", RoleB, b.Latest(), "Lisbon"))
	require.Eventually(t, phaseIs(b, RoleB, WaitingForPartner), waitFor, tick)
	require.Eventually(t, func() bool { return a.Latest().FinishedB }, waitFor, tick)
	require.Equal(t, Answering, a.Phase(RoleA))
	require.Empty(t, a.Latest().PartnerAnswer(RoleA))

	require.NoError(t, answers.Submit(ctx, "AB12CD", RoleA, a.Latest(), "Kyoto"))
	require.Eventually(t, phaseIs(a, RoleA, Revealed), waitFor, tick)
	require.Eventually(t, phaseIs(b, RoleB, Revealed), waitFor, tick)
	require.Equal(t, "Lisbon", a.Latest().PartnerAnswer(RoleA))
	require.Equal(t, "Kyoto", b.Latest().PartnerAnswer(RoleB))

	_, err = NewRoundController(store, staticPrompts{p}, WithRoller(fixedRoll(6))).Roll(ctx, "AB12CD")
	require.NoError(t, err)
	require.Eventually(t, phaseIs(a, RoleA, Answering), waitFor, tick)
	require.Eventually(t, phaseIs(b, RoleB, Answering), waitFor, tick)
}
