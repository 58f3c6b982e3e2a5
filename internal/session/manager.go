package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/gamerules"
	"github.com/park285/chess-arena/internal/matchmaking"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/pkg/gamedto"
)

// Emitter delivers an outbound event to a single connection.
type Emitter interface {
	EmitToConn(connID string, event gamedto.Event)
}

// ResultKind tags the outcome of a session operation so the dispatcher can
// decide, per policy, what to surface. The default policy is silent for
// everything except legality rejections.
type ResultKind int

const (
	Applied ResultKind = iota
	RejectedIllegal
	Ignored
	NotFound
)

// Result is the tagged outcome of ApplyMove or Resign.
type Result struct {
	Kind   ResultKind
	Reason string
	Game   *Game
}

// Manager enforces the per-session turn state machine: load, validate,
// apply, persist, broadcast. All of it runs under a per-sessionId lock so
// concurrent moves on the same session cannot interleave between load and
// persist.
type Manager struct {
	store    *Store
	rules    *gamerules.Adapter
	registry *Registry
	emitter  Emitter
	repo     *Repository

	locks sync.Map // sessionID → *sync.Mutex
}

func NewManager(store *Store, rules *gamerules.Adapter, registry *Registry, emitter Emitter) *Manager {
	return &Manager{store: store, rules: rules, registry: registry, emitter: emitter}
}

// AttachRepository wires a database repository for archiving finished games.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// ActiveGameByUser reports the user's current active session, if any.
func (m *Manager) ActiveGameByUser(ctx context.Context, userID string) (*Game, error) {
	return m.store.ActiveGameByUser(ctx, userID)
}

// Create allocates a session for a matched pair, persists it, registers the
// room, and emits gameStart to each participant. The payloads differ only
// in the assigned color.
func (m *Manager) Create(ctx context.Context, pair matchmaking.Pair) (*Game, error) {
	now := time.Now()
	g := &Game{
		ID:        uuid.NewString(),
		FEN:       m.rules.StartingFEN(),
		Moves:     []Move{},
		MovesUCI:  []string{},
		MovesSAN:  []string{},
		Status:    StatusActive,
		WhiteID:   pair.White.UserID,
		WhiteName: pair.White.DisplayName,
		BlackID:   pair.Black.UserID,
		BlackName: pair.Black.DisplayName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, g); err != nil {
		return nil, err
	}
	if err := m.store.IndexParticipants(ctx, g.ID, g.WhiteID, g.BlackID); err != nil {
		return nil, err
	}
	m.registry.Register(g.ID, pair.White.ConnID, pair.Black.ConnID)

	m.emitter.EmitToConn(pair.White.ConnID, gamedto.Event{
		Type:    gamedto.EventGameStart,
		Payload: gamedto.GameStart{GameID: g.ID, Color: "w", FEN: g.FEN},
	})
	m.emitter.EmitToConn(pair.Black.ConnID, gamedto.Event{
		Type:    gamedto.EventGameStart,
		Payload: gamedto.GameStart{GameID: g.ID, Color: "b", FEN: g.FEN},
	})

	obslog.L().Info("game_create",
		zap.String("game_id", g.ID),
		zap.String("white_id", g.WhiteID),
		zap.String("black_id", g.BlackID),
	)
	return g, nil
}

// ApplyMove runs the full move sequence for one session under its lock.
// Precondition violations (inactive session, non-participant, wrong turn)
// come back as Ignored; only engine rejections are RejectedIllegal.
func (m *Manager) ApplyMove(ctx context.Context, sessionID, userID string, mv Move) Result {
	lock := m.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	g, err := m.store.Get(ctx, sessionID)
	if err != nil {
		obslog.L().Error("game_load_error", zap.String("game_id", sessionID), zap.Error(err))
		return Result{Kind: Ignored, Reason: "storage"}
	}
	if g == nil {
		return Result{Kind: NotFound}
	}
	if g.Status != StatusActive {
		return Result{Kind: Ignored, Reason: "inactive", Game: g}
	}
	color := g.ColorOf(userID)
	if color == "" {
		return Result{Kind: Ignored, Reason: "not_participant", Game: g}
	}
	side, err := m.rules.SideToMove(g.MovesUCI)
	if err != nil {
		obslog.L().Error("game_replay_error", zap.String("game_id", g.ID), zap.Error(err))
		return Result{Kind: Ignored, Reason: "storage", Game: g}
	}
	if string(side) != string(color) {
		return Result{Kind: Ignored, Reason: "not_your_turn", Game: g}
	}

	res, err := m.rules.Apply(g.MovesUCI, mv.From, mv.To, mv.Promotion)
	if err != nil {
		if errors.Is(err, gamerules.ErrIllegalMove) {
			return Result{Kind: RejectedIllegal, Game: g}
		}
		obslog.L().Error("game_replay_error", zap.String("game_id", g.ID), zap.Error(err))
		return Result{Kind: Ignored, Reason: "storage", Game: g}
	}

	g.Moves = append(g.Moves, mv)
	g.MovesUCI = append(g.MovesUCI, res.UCI)
	g.MovesSAN = append(g.MovesSAN, res.SAN)
	g.FEN = res.FEN
	g.UpdatedAt = time.Now()

	switch res.Outcome {
	case gamerules.OutcomeCheckmate:
		g.Status = StatusCheckmate
		if res.Winner == gamerules.SideWhite {
			g.Winner = g.WhiteID
		} else {
			g.Winner = g.BlackID
		}
	case gamerules.OutcomeStalemate:
		g.Status = StatusStalemate
	case gamerules.OutcomeDraw:
		g.Status = StatusDraw
	case gamerules.OutcomeEnded:
		g.Status = StatusEnded
	}

	// Accepted inconsistency: a failed write is logged and the in-memory
	// update is broadcast anyway.
	if err := m.store.Save(ctx, g); err != nil {
		obslog.L().Error("game_persist_error", zap.String("game_id", g.ID), zap.Error(err))
	}

	m.broadcastState(g, &gamedto.LastMove{From: mv.From, To: mv.To, Promotion: mv.Promotion})

	obslog.L().Info("game_move",
		zap.String("game_id", g.ID),
		zap.String("user_id", userID),
		zap.String("uci", res.UCI),
		zap.String("status", string(g.Status)),
	)

	if g.Status.Terminal() {
		m.finish(ctx, g, string(g.Status))
	}
	return Result{Kind: Applied, Game: g}
}

// Resign ends the session in favor of the opponent. Same silent
// precondition policy as ApplyMove.
func (m *Manager) Resign(ctx context.Context, sessionID, userID string) Result {
	lock := m.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	g, err := m.store.Get(ctx, sessionID)
	if err != nil {
		obslog.L().Error("game_load_error", zap.String("game_id", sessionID), zap.Error(err))
		return Result{Kind: Ignored, Reason: "storage"}
	}
	if g == nil {
		return Result{Kind: NotFound}
	}
	if g.Status != StatusActive {
		return Result{Kind: Ignored, Reason: "inactive", Game: g}
	}
	if g.ColorOf(userID) == "" {
		return Result{Kind: Ignored, Reason: "not_participant", Game: g}
	}

	g.Status = StatusResigned
	g.Winner = g.OpponentID(userID)
	g.UpdatedAt = time.Now()

	if err := m.store.Save(ctx, g); err != nil {
		obslog.L().Error("game_persist_error", zap.String("game_id", g.ID), zap.Error(err))
	}

	m.broadcastState(g, nil)

	obslog.L().Info("game_resign",
		zap.String("game_id", g.ID),
		zap.String("resigner", userID),
		zap.String("winner", g.Winner),
	)
	m.finish(ctx, g, "resignation")
	return Result{Kind: Applied, Game: g}
}

func (m *Manager) broadcastState(g *Game, last *gamedto.LastMove) {
	conns, ok := m.registry.Conns(g.ID)
	if !ok {
		return
	}
	ev := gamedto.Event{
		Type:    gamedto.EventState,
		Payload: gamedto.State{FEN: g.FEN, LastMove: last, Status: string(g.Status)},
	}
	for _, c := range conns {
		m.emitter.EmitToConn(c, ev)
	}
}

// finish drops the room mapping and archives the result. Both are
// best-effort.
func (m *Manager) finish(ctx context.Context, g *Game, method string) {
	m.registry.Unregister(g.ID)
	if m.repo == nil {
		return
	}
	if err := m.repo.SaveResult(ctx, g, method); err != nil {
		obslog.L().Error("game_archive_error", zap.String("game_id", g.ID), zap.Error(err))
		return
	}
	obslog.L().Info("game_archive", zap.String("game_id", g.ID), zap.String("status", string(g.Status)))
}

func (m *Manager) lock(sessionID string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
