package block

import (
	"fmt"

	"github.com/roach88/kwsearch/internal/tupleset"
)

// Kind tags which bound a block's score currently holds.
type Kind int

const (
	// USCORE bounds the block and every block reachable from it.
	USCORE Kind = iota + 1

	// BSCORE bounds the tuples of this block only.
	BSCORE

	// SCORE is the best real score the block produced.
	SCORE
)

func (k Kind) String() string {
	switch k {
	case USCORE:
		return "USCORE"
	case BSCORE:
		return "BSCORE"
	case SCORE:
		return "SCORE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is a block's score together with its kind.
// States are values; transitions return a new State.
type State struct {
	Kind  Kind
	Value float64
}

// Pending is the initial state of a freshly created block.
func Pending(uscore float64) State {
	return State{Kind: USCORE, Value: uscore}
}

// Tighten replaces the upper bound with the block bound.
func (s State) Tighten(bscore float64) (State, error) {
	if s.Kind != USCORE {
		return s, tupleset.Invariantf("State.Tighten", "cannot tighten a %s block", s.Kind)
	}
	if bscore > s.Value+epsilon {
		return s, tupleset.Invariantf("State.Tighten", "bscore %v exceeds uscore %v", bscore, s.Value)
	}
	return State{Kind: BSCORE, Value: bscore}, nil
}

// Executed records the best real score a block produced.
func (s State) Executed(best float64) (State, error) {
	if s.Kind != BSCORE {
		return s, tupleset.Invariantf("State.Executed", "cannot execute a %s block", s.Kind)
	}
	return State{Kind: SCORE, Value: best}, nil
}

func (s State) String() string {
	return fmt.Sprintf("%s(%.6f)", s.Kind, s.Value)
}

// epsilon absorbs floating point noise when comparing bounds.
const epsilon = 1e-12
