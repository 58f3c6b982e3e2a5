package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/auth"
	"github.com/park285/chess-arena/internal/matchmaking"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/session"
	"github.com/park285/chess-arena/pkg/gamedto"
)

// Dispatcher routes inbound events to the queue and the session state
// machine. It owns no game state.
type Dispatcher struct {
	queue   *matchmaking.Queue
	mgr     *session.Manager
	emitter session.Emitter
	cat     *msgcat.Catalog

	// NotifyPreconditions surfaces silently-dropped precondition
	// violations (wrong turn, inactive session, non-participant) as
	// invalidMove notices. Off by default: stale or malicious clients get
	// no protocol detail.
	NotifyPreconditions bool
}

func NewDispatcher(queue *matchmaking.Queue, mgr *session.Manager, emitter session.Emitter, cat *msgcat.Catalog) *Dispatcher {
	return &Dispatcher{queue: queue, mgr: mgr, emitter: emitter, cat: cat}
}

// HandleEvent routes one inbound frame for an authenticated connection.
func (d *Dispatcher) HandleEvent(ctx context.Context, connID string, ident auth.Identity, frame gamedto.Frame) {
	switch frame.Type {
	case gamedto.EventJoinQueue:
		d.handleJoinQueue(ctx, connID, ident)
	case gamedto.EventMove:
		var req gamedto.MoveRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			obslog.L().Debug("event_decode_error", zap.String("type", frame.Type), zap.Error(err))
			return
		}
		d.handleMove(ctx, connID, ident, req)
	case gamedto.EventResign:
		var req gamedto.ResignRequest
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			obslog.L().Debug("event_decode_error", zap.String("type", frame.Type), zap.Error(err))
			return
		}
		d.mgr.Resign(ctx, req.GameID, ident.UserID)
	default:
		obslog.L().Debug("event_unknown", zap.String("type", frame.Type))
	}
}

// HandleDisconnect removes the connection from the matchmaking queue.
// An in-progress session is left running: the opponent keeps the board and
// the absent player simply stops moving.
func (d *Dispatcher) HandleDisconnect(connID string) {
	d.queue.RemoveByConnection(connID)
}

func (d *Dispatcher) handleJoinQueue(ctx context.Context, connID string, ident auth.Identity) {
	// one active session per player
	if g, err := d.mgr.ActiveGameByUser(ctx, ident.UserID); err == nil && g != nil {
		obslog.L().Debug("queue_join_busy", zap.String("user_id", ident.UserID), zap.String("game_id", g.ID))
		return
	}

	added := d.queue.Enqueue(matchmaking.Entry{
		UserID:      ident.UserID,
		ConnID:      connID,
		DisplayName: ident.Username,
	})
	if added {
		d.emitter.EmitToConn(connID, gamedto.Event{
			Type:    gamedto.EventQueued,
			Payload: gamedto.QueuedNotice{Message: d.cat.Text("queue.joined", "")},
		})
		obslog.L().Info("queue_join", zap.String("user_id", ident.UserID), zap.Int("waiting", d.queue.Len()))
	}

	pair, ok := d.queue.TryPairOne()
	if !ok {
		return
	}
	if _, err := d.mgr.Create(ctx, pair); err != nil {
		obslog.L().Error("game_create_error",
			zap.String("white_id", pair.White.UserID),
			zap.String("black_id", pair.Black.UserID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) handleMove(ctx context.Context, connID string, ident auth.Identity, req gamedto.MoveRequest) {
	res := d.mgr.ApplyMove(ctx, req.GameID, ident.UserID, session.Move{
		From:      req.From,
		To:        req.To,
		Promotion: req.Promotion,
	})
	switch res.Kind {
	case session.RejectedIllegal:
		d.emitter.EmitToConn(connID, gamedto.Event{
			Type: gamedto.EventInvalidMove,
			Payload: gamedto.InvalidMove{
				From:      req.From,
				To:        req.To,
				Promotion: req.Promotion,
				Message:   d.cat.Text("move.invalid_plain", ""),
			},
		})
	case session.Ignored, session.NotFound:
		if d.NotifyPreconditions {
			d.emitter.EmitToConn(connID, gamedto.Event{
				Type: gamedto.EventInvalidMove,
				Payload: gamedto.InvalidMove{
					From:      req.From,
					To:        req.To,
					Promotion: req.Promotion,
					Message:   res.Reason,
				},
			})
		}
	}
}
