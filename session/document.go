/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/Seednode/reveal/docstore"
)

// Field names as stored in the shared document.
const (
	FieldDiceRoll  = "dice_roll"
	FieldCategory  = "category"
	FieldQuestionA = "question_a"
	FieldQuestionB = "question_b"
	FieldAnswerA   = "a_answer"
	FieldAnswerB   = "b_answer"
	FieldFinishedA = "a_finished"
	FieldFinishedB = "b_finished"
)

// WaitingCategory is the category of a room nobody has rolled in yet.
const WaitingCategory = "Waiting to roll..."

// Role is the local participant's side of the shared document. It is chosen
// per client and never written.
type Role string

const (
	RoleNone Role = ""
	RoleA    Role = "A"
	RoleB    Role = "B"
)

// ParseRole accepts "a", "B", "partner a", "PARTNER_B" and similar.
func ParseRole(s string) (Role, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Trim(strings.TrimPrefix(s, "PARTNER"), " _-")

	switch Role(s) {
	case RoleA:
		return RoleA, nil
	case RoleB:
		return RoleB, nil
	}
	return RoleNone, ErrInvalidRole
}

func (r Role) Valid() bool {
	return r == RoleA || r == RoleB
}

// Partner returns the other role, or RoleNone if r is unset.
func (r Role) Partner() Role {
	switch r {
	case RoleA:
		return RoleB
	case RoleB:
		return RoleA
	}
	return RoleNone
}

func (r Role) answerField() string {
	if r == RoleB {
		return FieldAnswerB
	}
	return FieldAnswerA
}

func (r Role) finishedField() string {
	if r == RoleB {
		return FieldFinishedB
	}
	return FieldFinishedA
}

// Document is the decoded shared state of one room.
type Document struct {
	DiceRoll  int
	Category  string
	QuestionA string
	QuestionB string
	AnswerA   string
	AnswerB   string
	FinishedA bool
	FinishedB bool
}

// DefaultFields is what the first observer of an absent room creates.
func DefaultFields() docstore.Fields {
	return docstore.Fields{
		FieldDiceRoll:  0,
		FieldCategory:  WaitingCategory,
		FieldQuestionA: "",
		FieldQuestionB: "",
		FieldAnswerA:   "",
		FieldAnswerB:   "",
		FieldFinishedA: false,
		FieldFinishedB: false,
	}
}

// Decode reads a document, treating missing or mistyped fields as zero.
func Decode(f docstore.Fields) Document {
	return Document{
		DiceRoll:  intField(f, FieldDiceRoll),
		Category:  stringField(f, FieldCategory),
		QuestionA: stringField(f, FieldQuestionA),
		QuestionB: stringField(f, FieldQuestionB),
		AnswerA:   stringField(f, FieldAnswerA),
		AnswerB:   stringField(f, FieldAnswerB),
		FinishedA: boolField(f, FieldFinishedA),
		FinishedB: boolField(f, FieldFinishedB),
	}
}

func stringField(f docstore.Fields, name string) string {
	s, _ := f[name].(string)
	return s
}

func boolField(f docstore.Fields, name string) bool {
	b, _ := f[name].(bool)
	return b
}

func intField(f docstore.Fields, name string) int {
	var n float64

	switch v := f[name].(type) {
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case float32:
		n = float64(v)
	case float64:
		n = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}

	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0
	}
	return int(n)
}

// QuestionFor returns the prompt shown to role.
func (d Document) QuestionFor(role Role) string {
	switch role {
	case RoleA:
		return d.QuestionA
	case RoleB:
		return d.QuestionB
	}
	return ""
}

func (d Document) AnswerOf(role Role) string {
	switch role {
	case RoleA:
		return d.AnswerA
	case RoleB:
		return d.AnswerB
	}
	return ""
}

func (d Document) FinishedFor(role Role) bool {
	switch role {
	case RoleA:
		return d.FinishedA
	case RoleB:
		return d.FinishedB
	}
	return false
}

func (d Document) BothFinished() bool {
	return d.FinishedA && d.FinishedB
}

// PartnerAnswer is the other side's answer, withheld until both have submitted.
func (d Document) PartnerAnswer(role Role) string {
	if !d.BothFinished() {
		return ""
	}
	return d.AnswerOf(role.Partner())
}
