package session

import (
	"time"
)

// Color identifies chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Status represents a game session lifecycle state. A session leaves
// "active" exactly once; every other status is terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCheckmate Status = "checkmate"
	StatusStalemate Status = "stalemate"
	StatusDraw      Status = "draw"
	StatusResigned  Status = "resigned"
	StatusEnded     Status = "ended"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool { return s != StatusActive }

// Move is one accepted half-move as submitted by a client.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// Game is the persisted state of a session between two players.
// MovesUCI is the authoritative history; FEN is always the result of
// replaying it from the start position. MovesSAN is carried for the
// archive's PGN output.
type Game struct {
	ID        string    `json:"id"`
	FEN       string    `json:"fen"`
	Moves     []Move    `json:"moves"`
	MovesUCI  []string  `json:"moves_uci"`
	MovesSAN  []string  `json:"moves_san"`
	Status    Status    `json:"status"`
	WhiteID   string    `json:"white_id"`
	WhiteName string    `json:"white_name"`
	BlackID   string    `json:"black_id"`
	BlackName string    `json:"black_name"`
	Winner    string    `json:"winner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ColorOf returns the side userID plays, or "" for non-participants.
func (g *Game) ColorOf(userID string) Color {
	if g.WhiteID == userID {
		return White
	}
	if g.BlackID == userID {
		return Black
	}
	return ""
}

// OpponentID returns the other participant's id, or "".
func (g *Game) OpponentID(userID string) string {
	if g.WhiteID == userID {
		return g.BlackID
	}
	if g.BlackID == userID {
		return g.WhiteID
	}
	return ""
}
