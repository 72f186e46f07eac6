/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/Seednode/reveal/docstore"
)

// DieSides is the number of faces on the die; rolls are 1 to DieSides.
const DieSides = 6

// Roller draws a die roll in 1..DieSides.
type Roller func() (int, error)

// RollDie draws uniformly from 1..DieSides using crypto/rand.
func RollDie() (int, error) {
	n, err := crand.Int(crand.Reader, big.NewInt(DieSides))
	if err != nil {
		return 0, fmt.Errorf("read random roll: %w", err)
	}
	return int(n.Int64()) + 1, nil
}

// Round is what a successful roll wrote.
type Round struct {
	Roll   int
	Prompt Prompt
}

// RoundPatch resets the round and installs a new prompt. All eight fields go
// out in one merge so no reader sees a new roll next to old answers.
func RoundPatch(roll int, p Prompt) docstore.Fields {
	return docstore.Fields{
		FieldDiceRoll:  roll,
		FieldCategory:  p.Category,
		FieldQuestionA: p.ForA,
		FieldQuestionB: p.ForB,
		FieldFinishedA: false,
		FieldFinishedB: false,
		FieldAnswerA:   "",
		FieldAnswerB:   "",
	}
}

// RoundController starts new rounds.
//
// Two clients rolling at about the same time both succeed; the store keeps
// whichever write arrived last. Nothing here detects that.
type RoundController struct {
	store   Store
	prompts PromptSource
	roll    Roller
	busy    atomic.Int32
}

type RoundOption func(*RoundController)

func WithRoller(r Roller) RoundOption {
	return func(c *RoundController) {
		c.roll = r
	}
}

func NewRoundController(store Store, prompts PromptSource, opts ...RoundOption) *RoundController {
	c := &RoundController{
		store:   store,
		prompts: prompts,
		roll:    RollDie,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Busy reports whether a roll is in flight. It is a hint for disabling the
// roll control; Roll itself does not refuse concurrent calls.
func (c *RoundController) Busy() bool {
	return c.busy.Load() > 0
}

// Roll draws a roll, fetches its prompt and writes the new round. Nothing is
// written until the prompt is in hand.
func (c *RoundController) Roll(ctx context.Context, key string) (Round, error) {
	c.busy.Add(1)
	defer c.busy.Add(-1)

	roll, err := c.roll()
	if err != nil {
		return Round{}, err
	}
	if roll < 1 || roll > DieSides {
		return Round{}, fmt.Errorf("roll %d out of range 1-%d", roll, DieSides)
	}

	prompt := c.prompts.FetchPrompt(ctx, roll)

	if err := ctx.Err(); err != nil {
		return Round{}, err
	}

	if err := c.store.MergeWrite(ctx, key, RoundPatch(roll, prompt)); err != nil {
		return Round{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	return Round{Roll: roll, Prompt: prompt}, nil
}
