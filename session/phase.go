/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

// Phase is what a client shows for the latest snapshot of its room.
type Phase int

const (
	// Loading means no snapshot has arrived yet.
	Loading Phase = iota
	NoRoundYet
	Answering
	WaitingForPartner
	Revealed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "Loading"
	case NoRoundYet:
		return "NoRoundYet"
	case Answering:
		return "Answering"
	case WaitingForPartner:
		return "WaitingForPartner"
	case Revealed:
		return "Revealed"
	default:
		return "Unknown"
	}
}

// DerivePhase classifies doc from role's point of view. It keeps no state
// between calls, so a fresh roll (flags reset) always leaves Revealed no
// matter what was shown before. A nil doc is Loading.
func DerivePhase(doc *Document, role Role) Phase {
	switch {
	case doc == nil:
		return Loading
	case doc.BothFinished():
		return Revealed
	case doc.DiceRoll == 0:
		return NoRoundYet
	case doc.FinishedFor(role):
		return WaitingForPartner
	default:
		return Answering
	}
}
