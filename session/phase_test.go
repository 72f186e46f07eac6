/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Seednode/reveal/docstore"
)

func TestDerivePhaseIsTotal(t *testing.T) {
	for _, role := range []Role{RoleA, RoleB} {
		for roll := 0; roll <= DieSides; roll++ {
			for _, finA := range []bool{false, true} {
				for _, finB := range []bool{false, true} {
					doc := &Document{DiceRoll: roll, FinishedA: finA, FinishedB: finB}

					got := DerivePhase(doc, role)

					var want Phase
					switch {
					case finA && finB:
						want = Revealed
					case roll == 0:
						want = NoRoundYet
					case doc.FinishedFor(role):
						want = WaitingForPartner
					default:
						want = Answering
					}

					require.Equal(t, want, got, "role=%s roll=%d a=%v b=%v", role, roll, finA, finB)
				}
			}
		}
	}
}

func TestDerivePhaseLoading(t *testing.T) {
	require.Equal(t, Loading, DerivePhase(nil, RoleA))
	require.Equal(t, "Loading", Loading.String())
}

func TestDerivePhaseDefaultDocument(t *testing.T) {
	doc := Decode(DefaultFields())

	require.Equal(t, NoRoundYet, DerivePhase(&doc, RoleA))
	require.Equal(t, NoRoundYet, DerivePhase(&doc, RoleB))
	require.Equal(t, WaitingCategory, doc.Category)
}

func TestFreshRollLeavesRevealed(t *testing.T) {
	doc := &Document{DiceRoll: 3, AnswerA: "x", AnswerB: "y", FinishedA: true, FinishedB: true}
	require.Equal(t, Revealed, DerivePhase(doc, RoleA))

	next := Decode(RoundPatch(5, Prompt{Category: "Dreams", ForA: "qa", ForB: "qb"}))
	require.Equal(t, Answering, DerivePhase(&next, RoleA))
	require.Equal(t, Answering, DerivePhase(&next, RoleB))
	require.Empty(t, next.PartnerAnswer(RoleA))
}

func TestPhaseScenario(t *testing.T) {
	fields := DefaultFields()
	doc := Decode(fields)
	apply := func(patch docstore.Fields) {
		maps.Copy(fields, patch)
		doc = Decode(fields)
	}

	require.Equal(t, NoRoundYet, DerivePhase(&doc, RoleA))

	apply(RoundPatch(4, Prompt{Category: "Everyday", ForA: "qa", ForB: "qb"}))
	require.Equal(t, Answering, DerivePhase(&doc, RoleA))
	require.Equal(t, Answering, DerivePhase(&doc, RoleB))
	require.Equal(t, "qa", doc.QuestionFor(RoleA))
	require.Equal(t, "qb", doc.QuestionFor(RoleB))

	apply(AnswerPatch(RoleA, "blue"))
	require.Equal(t, WaitingForPartner, DerivePhase(&doc, RoleA))
	require.Equal(t, Answering, DerivePhase(&doc, RoleB))
	require.Empty(t, doc.PartnerAnswer(RoleB))

	apply(AnswerPatch(RoleB, "green"))
	require.Equal(t, Revealed, DerivePhase(&doc, RoleA))
	require.Equal(t, Revealed, DerivePhase(&doc, RoleB))
	require.Equal(t, "green", doc.PartnerAnswer(RoleA))
	require.Equal(t, "blue", doc.PartnerAnswer(RoleB))
}
