package gamedto

import "encoding/json"

// Event type names on the wire.
const (
	EventJoinQueue   = "joinQueue"
	EventMove        = "move"
	EventResign      = "resign"
	EventQueued      = "queued"
	EventGameStart   = "gameStart"
	EventState       = "state"
	EventInvalidMove = "invalidMove"
)

// Frame is an inbound event envelope; payload decoding is per type.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is an outbound event envelope.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// MoveRequest is the payload of an inbound "move".
type MoveRequest struct {
	GameID    string `json:"gameId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// ResignRequest is the payload of an inbound "resign".
type ResignRequest struct {
	GameID string `json:"gameId"`
}

// QueuedNotice acknowledges a joinQueue.
type QueuedNotice struct {
	Message string `json:"message,omitempty"`
}

// GameStart is sent individually to each participant; only Color differs.
type GameStart struct {
	GameID string `json:"gameId"`
	Color  string `json:"color"` // "w" or "b"
	FEN    string `json:"fen"`
}

// LastMove echoes the accepted move inside a state broadcast.
type LastMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// State is the room broadcast after an accepted move or resignation.
type State struct {
	FEN      string    `json:"fen"`
	LastMove *LastMove `json:"lastMove,omitempty"`
	Status   string    `json:"status"`
}

// InvalidMove is sent to the requester only, on rules-engine rejection.
type InvalidMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Message   string `json:"message,omitempty"`
}
