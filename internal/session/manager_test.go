package session

import (
	"context"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-arena/internal/gamerules"
	"github.com/park285/chess-arena/internal/matchmaking"
	"github.com/park285/chess-arena/pkg/gamedto"
)

type captureEmitter struct {
	mu     sync.Mutex
	events map[string][]gamedto.Event
}

func newCaptureEmitter() *captureEmitter {
	return &captureEmitter{events: make(map[string][]gamedto.Event)}
}

func (e *captureEmitter) EmitToConn(connID string, ev gamedto.Event) {
	e.mu.Lock()
	e.events[connID] = append(e.events[connID], ev)
	e.mu.Unlock()
}

func (e *captureEmitter) byType(connID, typ string) []gamedto.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []gamedto.Event
	for _, ev := range e.events[connID] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func newTestManager(t *testing.T) (*Manager, *captureEmitter) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStoreWithClient(rdb, 0)
	em := newCaptureEmitter()
	m := NewManager(store, gamerules.New(), NewRegistry(), em)
	return m, em
}

func testPair() matchmaking.Pair {
	return matchmaking.Pair{
		White: matchmaking.Entry{UserID: "u1", ConnID: "c1", DisplayName: "alice"},
		Black: matchmaking.Entry{UserID: "u2", ConnID: "c2", DisplayName: "bob"},
	}
}

func TestCreateEmitsGameStartToBoth(t *testing.T) {
	m, em := newTestManager(t)
	ctx := context.Background()

	g, err := m.Create(ctx, testPair())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Status != StatusActive || len(g.MovesUCI) != 0 {
		t.Fatalf("unexpected initial state: %+v", g)
	}

	w := em.byType("c1", gamedto.EventGameStart)
	b := em.byType("c2", gamedto.EventGameStart)
	if len(w) != 1 || len(b) != 1 {
		t.Fatalf("expected one gameStart each, got %d/%d", len(w), len(b))
	}
	ws := w[0].Payload.(gamedto.GameStart)
	bs := b[0].Payload.(gamedto.GameStart)
	if ws.GameID != g.ID || bs.GameID != g.ID {
		t.Fatalf("gameId mismatch: %q vs %q (want %q)", ws.GameID, bs.GameID, g.ID)
	}
	if ws.Color != "w" || bs.Color != "b" {
		t.Fatalf("unexpected colors: %q / %q", ws.Color, bs.Color)
	}
	if ws.FEN != bs.FEN || ws.FEN != g.FEN {
		t.Fatalf("initial fen mismatch")
	}

	loaded, err := m.store.Get(ctx, g.ID)
	if err != nil || loaded == nil {
		t.Fatalf("store.Get: %v", err)
	}
}

func TestApplyMoveBroadcastsState(t *testing.T) {
	m, em := newTestManager(t)
	ctx := context.Background()
	g, _ := m.Create(ctx, testPair())

	res := m.ApplyMove(ctx, g.ID, "u1", Move{From: "e2", To: "e4"})
	if res.Kind != Applied {
		t.Fatalf("expected Applied, got %v (%s)", res.Kind, res.Reason)
	}
	if len(res.Game.Moves) != 1 || len(res.Game.MovesUCI) != 1 {
		t.Fatalf("history length: %d", len(res.Game.Moves))
	}

	for _, conn := range []string{"c1", "c2"} {
		states := em.byType(conn, gamedto.EventState)
		if len(states) != 1 {
			t.Fatalf("expected 1 state on %s, got %d", conn, len(states))
		}
		st := states[0].Payload.(gamedto.State)
		if st.Status != "active" || st.LastMove == nil || st.LastMove.From != "e2" || st.LastMove.To != "e4" {
			t.Fatalf("unexpected state payload on %s: %+v", conn, st)
		}
		if st.FEN != res.Game.FEN {
			t.Fatalf("fen mismatch on %s", conn)
		}
	}
}

func TestPositionEqualsHistoryReplay(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g, _ := m.Create(ctx, testPair())

	moves := []struct {
		user string
		mv   Move
	}{
		{"u1", Move{From: "e2", To: "e4"}},
		{"u2", Move{From: "e7", To: "e5"}},
		{"u1", Move{From: "g1", To: "f3"}},
	}
	for i, step := range moves {
		if res := m.ApplyMove(ctx, g.ID, step.user, step.mv); res.Kind != Applied {
			t.Fatalf("move %d not applied: %v", i, res.Reason)
		}
	}
	cur, err := m.store.Get(ctx, g.ID)
	if err != nil || cur == nil {
		t.Fatalf("store.Get: %v", err)
	}
	if len(cur.MovesUCI) != len(moves) {
		t.Fatalf("expected %d moves, got %d", len(moves), len(cur.MovesUCI))
	}
	replayed, err := gamerules.New().Replay(cur.MovesUCI)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if replayed != cur.FEN {
		t.Fatalf("stored fen is not the replay of history:\n stored %q\n replay %q", cur.FEN, replayed)
	}
}

func TestWrongTurnSilentlyIgnored(t *testing.T) {
	m, em := newTestManager(t)
	ctx := context.Background()
	g, _ := m.Create(ctx, testPair())

	res := m.ApplyMove(ctx, g.ID, "u2", Move{From: "e7", To: "e5"})
	if res.Kind != Ignored || res.Reason != "not_your_turn" {
		t.Fatalf("expected Ignored/not_your_turn, got %v/%s", res.Kind, res.Reason)
	}
	if got := len(em.byType("c1", gamedto.EventState)) + len(em.byType("c2", gamedto.EventState)); got != 0 {
		t.Fatalf("expected no broadcast, got %d", got)
	}
	cur, _ := m.store.Get(ctx, g.ID)
	if len(cur.MovesUCI) != 0 || cur.FEN != g.FEN {
		t.Fatalf("state mutated on rejected move")
	}
}

func TestNonParticipantSilentlyIgnored(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g, _ := m.Create(ctx, testPair())

	res := m.ApplyMove(ctx, g.ID, "intruder", Move{From: "e2", To: "e4"})
	if res.Kind != Ignored || res.Reason != "not_participant" {
		t.Fatalf("expected Ignored/not_participant, got %v/%s", res.Kind, res.Reason)
	}
}

func TestIllegalMoveRejectedWithoutMutation(t *testing.T) {
	m, em := newTestManager(t)
	ctx := context.Background()
	g, _ := m.Create(ctx, testPair())

	res := m.ApplyMove(ctx, g.ID, "u1", Move{From: "e2", To: "e5"})
	if res.Kind != RejectedIllegal {
		t.Fatalf("expected RejectedIllegal, got %v", res.Kind)
	}
	if got := len(em.byType("c1", gamedto.EventState)); got != 0 {
		t.Fatalf("state broadcast on illegal move")
	}
	cur, _ := m.store.Get(ctx, g.ID)
	if len(cur.MovesUCI) != 0 {
		t.Fatalf("history mutated on illegal move")
	}
}

func TestMoveOnUnknownSession(t *testing.T) {
	m, _ := newTestManager(t)
	res := m.ApplyMove(context.Background(), "nope", "u1", Move{From: "e2", To: "e4"})
	if res.Kind != NotFound {
		t.Fatalf("expected NotFound, got %v", res.Kind)
	}
}

func TestResignThenMoveIsIgnored(t *testing.T) {
	m, em := newTestManager(t)
	ctx := context.Background()
	g, _ := m.Create(ctx, testPair())

	res := m.Resign(ctx, g.ID, "u2")
	if res.Kind != Applied {
		t.Fatalf("Resign: %v", res.Reason)
	}
	if res.Game.Status != StatusResigned || res.Game.Winner != "u1" {
		t.Fatalf("unexpected terminal state: %s winner=%s", res.Game.Status, res.Game.Winner)
	}
	for _, conn := range []string{"c1", "c2"} {
		states := em.byType(conn, gamedto.EventState)
		if len(states) != 1 {
			t.Fatalf("expected resign broadcast on %s", conn)
		}
		st := states[0].Payload.(gamedto.State)
		if st.Status != "resigned" || st.LastMove != nil {
			t.Fatalf("unexpected resign state payload: %+v", st)
		}
	}

	after := m.ApplyMove(ctx, g.ID, "u1", Move{From: "e2", To: "e4"})
	if after.Kind != Ignored || after.Reason != "inactive" {
		t.Fatalf("move after resign: %v/%s", after.Kind, after.Reason)
	}
	if res2 := m.Resign(ctx, g.ID, "u1"); res2.Kind != Ignored {
		t.Fatalf("second resign not ignored: %v", res2.Kind)
	}
}

func TestCheckmateSetsStatusAndWinner(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g, _ := m.Create(ctx, testPair())

	// fool's mate: black wins
	seq := []struct {
		user string
		mv   Move
	}{
		{"u1", Move{From: "f2", To: "f3"}},
		{"u2", Move{From: "e7", To: "e5"}},
		{"u1", Move{From: "g2", To: "g4"}},
		{"u2", Move{From: "d8", To: "h4"}},
	}
	var last Result
	for i, step := range seq {
		last = m.ApplyMove(ctx, g.ID, step.user, step.mv)
		if last.Kind != Applied {
			t.Fatalf("move %d: %v/%s", i, last.Kind, last.Reason)
		}
	}
	if last.Game.Status != StatusCheckmate {
		t.Fatalf("expected checkmate, got %s", last.Game.Status)
	}
	if last.Game.Winner != "u2" {
		t.Fatalf("expected winner u2, got %q", last.Game.Winner)
	}
}

func TestConcurrentMovesOnSameSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g, _ := m.Create(ctx, testPair())

	var wg sync.WaitGroup
	results := make([]Result, 2)
	wg.Add(2)
	go func() { defer wg.Done(); results[0] = m.ApplyMove(ctx, g.ID, "u1", Move{From: "e2", To: "e4"}) }()
	go func() { defer wg.Done(); results[1] = m.ApplyMove(ctx, g.ID, "u1", Move{From: "d2", To: "d4"}) }()
	wg.Wait()

	applied := 0
	for _, r := range results {
		if r.Kind == Applied {
			applied++
		}
	}
	if applied != 1 {
		t.Fatalf("expected exactly one applied move, got %d", applied)
	}
	cur, _ := m.store.Get(ctx, g.ID)
	if len(cur.MovesUCI) != 1 {
		t.Fatalf("lost update: history length %d", len(cur.MovesUCI))
	}
}

func TestActiveGameByUser(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	g, _ := m.Create(ctx, testPair())

	got, err := m.ActiveGameByUser(ctx, "u1")
	if err != nil || got == nil || got.ID != g.ID {
		t.Fatalf("ActiveGameByUser: %v %+v", err, got)
	}
	m.Resign(ctx, g.ID, "u1")
	got, err = m.ActiveGameByUser(ctx, "u1")
	if err != nil || got != nil {
		t.Fatalf("expected no active game after resign, got %+v", got)
	}
}
