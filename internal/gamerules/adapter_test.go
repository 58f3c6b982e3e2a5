package gamerules

import (
	"errors"
	"strings"
	"testing"
)

func TestStartingFENAndSideToMove(t *testing.T) {
	a := New()
	fen := a.StartingFEN()
	if !strings.HasPrefix(fen, "rnbqkbnr/pppppppp/") {
		t.Fatalf("unexpected starting fen: %q", fen)
	}
	side, err := a.SideToMove(nil)
	if err != nil {
		t.Fatalf("SideToMove: %v", err)
	}
	if side != SideWhite {
		t.Fatalf("expected white to move, got %s", side)
	}
	side, err = a.SideToMove([]string{"e2e4"})
	if err != nil {
		t.Fatalf("SideToMove after e2e4: %v", err)
	}
	if side != SideBlack {
		t.Fatalf("expected black to move, got %s", side)
	}
}

func TestApplyLegalMove(t *testing.T) {
	a := New()
	res, err := a.Apply(nil, "e2", "e4", "")
	if err != nil {
		t.Fatalf("Apply e2e4: %v", err)
	}
	if res.UCI != "e2e4" || res.SAN != "e4" {
		t.Fatalf("unexpected notation: uci=%q san=%q", res.UCI, res.SAN)
	}
	if res.Turn != SideBlack {
		t.Fatalf("expected black to move after e4, got %s", res.Turn)
	}
	if res.Outcome != OutcomeNone {
		t.Fatalf("unexpected outcome: %s", res.Outcome)
	}
	if res.FEN == a.StartingFEN() {
		t.Fatalf("fen did not change")
	}
}

func TestApplyIllegalMove(t *testing.T) {
	a := New()
	if _, err := a.Apply(nil, "e2", "e5", ""); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	// moving a black piece on white's turn
	if _, err := a.Apply(nil, "e7", "e5", ""); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove for wrong-side piece, got %v", err)
	}
}

func TestApplyDetectsCheckmate(t *testing.T) {
	a := New()
	// fool's mate
	history := []string{"f2f3", "e7e5", "g2g4"}
	res, err := a.Apply(history, "d8", "h4", "")
	if err != nil {
		t.Fatalf("Apply Qh4#: %v", err)
	}
	if res.Outcome != OutcomeCheckmate {
		t.Fatalf("expected checkmate, got %s", res.Outcome)
	}
	if res.Winner != SideBlack {
		t.Fatalf("expected black winner, got %s", res.Winner)
	}
}

func TestReplayMatchesApplyResult(t *testing.T) {
	a := New()
	res, err := a.Apply([]string{"e2e4", "e7e5"}, "g1", "f3", "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	fen, err := a.Replay([]string{"e2e4", "e7e5", "g1f3"})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if fen != res.FEN {
		t.Fatalf("replay mismatch:\n apply  %q\n replay %q", res.FEN, fen)
	}
}

func TestCorruptHistory(t *testing.T) {
	a := New()
	if _, err := a.Replay([]string{"zz9x"}); err == nil {
		t.Fatalf("expected error for corrupt history")
	}
}
