package gamerules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Side identifies the player to move.
type Side string

const (
	SideWhite Side = "white"
	SideBlack Side = "black"
)

// Outcome classifies a position after a move.
type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeCheckmate Outcome = "checkmate"
	OutcomeStalemate Outcome = "stalemate"
	OutcomeDraw      Outcome = "draw"
	OutcomeEnded     Outcome = "ended"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

// ErrIllegalMove is returned when the engine rejects a proposed move.
const ErrIllegalMove = staticErr("illegal move")

// MoveResult is the engine's report after a legal move was applied.
type MoveResult struct {
	FEN     string
	UCI     string
	SAN     string
	Turn    Side
	Outcome Outcome
	Winner  Side // set for checkmate only
}

// Adapter wraps the chess rules engine. Pure and stateless: every call
// reconstructs the position by replaying the UCI history from the start
// position, which keeps the stored encoding authoritative.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

// StartingFEN returns the initial position encoding.
func (a *Adapter) StartingFEN() string {
	return nchess.NewGame().FEN()
}

// SideToMove reports whose turn it is after replaying history.
func (a *Adapter) SideToMove(history []string) (Side, error) {
	game := reconstruct(history)
	if game == nil {
		return "", fmt.Errorf("corrupt move history")
	}
	return sideFrom(game.Position().Turn()), nil
}

// Replay returns the position encoding after replaying history.
func (a *Adapter) Replay(history []string) (string, error) {
	game := reconstruct(history)
	if game == nil {
		return "", fmt.Errorf("corrupt move history")
	}
	return game.FEN(), nil
}

// Apply submits {from, to, promotion} against the position reached by
// history. Returns ErrIllegalMove when the engine rejects the move.
func (a *Adapter) Apply(history []string, from, to, promotion string) (*MoveResult, error) {
	game := reconstruct(history)
	if game == nil {
		return nil, fmt.Errorf("corrupt move history")
	}
	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to) + strings.TrimSpace(promotion))
	if len(uci) < 4 {
		return nil, ErrIllegalMove
	}
	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return nil, ErrIllegalMove
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return nil, ErrIllegalMove
	}

	res := &MoveResult{
		FEN:  game.FEN(),
		UCI:  uci,
		SAN:  san,
		Turn: sideFrom(game.Position().Turn()),
	}
	switch game.Outcome() {
	case nchess.WhiteWon, nchess.BlackWon:
		if game.Method() == nchess.Checkmate {
			res.Outcome = OutcomeCheckmate
			res.Winner = SideWhite
			if game.Outcome() == nchess.BlackWon {
				res.Winner = SideBlack
			}
		} else {
			res.Outcome = OutcomeEnded
		}
	case nchess.Draw:
		if game.Method() == nchess.Stalemate {
			res.Outcome = OutcomeStalemate
		} else {
			res.Outcome = OutcomeDraw
		}
	default:
		res.Outcome = OutcomeNone
	}
	return res, nil
}

// reconstruct replays stored UCI moves from the start position.
func reconstruct(moves []string) *nchess.Game {
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil
		}
	}
	return game
}

func sideFrom(c nchess.Color) Side {
	if c == nchess.White {
		return SideWhite
	}
	return SideBlack
}
