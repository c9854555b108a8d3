package roundsched

import (
	"reflect"
	"testing"
	"time"

	"gamearena/internal/adjudicator/kingofthehill"
	"gamearena/internal/broadcast"
	"gamearena/internal/clock"
	"gamearena/internal/domain"
	"gamearena/internal/replay"
)

// TestReconstructMatchesLiveStateAfterCompletion is Scenario F: exporting
// a completed game's ReplayLog and folding it back through Reconstruct
// must reproduce the live game's finalScores, alive set, and gameSpecific
// exactly, without ever calling Resolve again.
func TestReconstructMatchesLiveStateAfterCompletion(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	log := replay.New(fc)
	bc := broadcast.New(8, func(domain.ParticipantID, any) error { return nil }, nil)

	adj := kingofthehill.New()
	init, err := adj.Init(map[string]any{"boundary": float64(3)})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	cfg := domain.GameConfig{
		GameType:        kingofthehill.GameType,
		Rounds:          domain.FixedRounds(2),
		RoundDeadline:   time.Second,
		MinParticipants: init.MinParticipants,
		MaxParticipants: 2,
		GameParams:      map[string]any{"boundary": float64(3)},
	}
	g := New(cfg, init.GameSpecific, Options{MinAlive: init.MinAlive}, fc, adj, log, bc)

	if err := g.handleAddParticipant(domain.ParticipantInfo{ID: "p1", Kind: domain.KindHuman}); err != nil {
		t.Fatalf("join p1: %v", err)
	}
	if err := g.handleAddParticipant(domain.ParticipantInfo{ID: "p2", Kind: domain.KindHuman}); err != nil {
		t.Fatalf("join p2: %v", err)
	}

	if err := g.handleSubmitAction(domain.Action{ParticipantID: "p1", ActionType: kingofthehill.ActionMove, Payload: map[string]any{"direction": float64(1)}}); err != nil {
		t.Fatalf("round1 p1: %v", err)
	}
	if err := g.handleSubmitAction(domain.Action{ParticipantID: "p2", ActionType: kingofthehill.ActionDefend}); err != nil {
		t.Fatalf("round1 p2: %v", err)
	}
	if err := g.handleSubmitAction(domain.Action{ParticipantID: "p1", ActionType: kingofthehill.ActionDefend}); err != nil {
		t.Fatalf("round2 p1: %v", err)
	}
	if err := g.handleSubmitAction(domain.Action{ParticipantID: "p2", ActionType: kingofthehill.ActionMove, Payload: map[string]any{"direction": float64(-1)}}); err != nil {
		t.Fatalf("round2 p2: %v", err)
	}

	if g.state.Phase != domain.PhaseEnded {
		t.Fatalf("phase = %s, want ended", g.state.Phase)
	}

	entries := log.Since(0)
	rebuilt, err := Reconstruct(g.ID(), entries, kingofthehill.New())
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}

	if !reflect.DeepEqual(rebuilt.Scores, g.state.Scores) {
		t.Fatalf("rebuilt finalScores = %v, want %v", rebuilt.Scores, g.state.Scores)
	}
	if !reflect.DeepEqual(rebuilt.Alive, g.state.Alive) {
		t.Fatalf("rebuilt alive = %v, want %v", rebuilt.Alive, g.state.Alive)
	}
	if !reflect.DeepEqual(rebuilt.GameSpecific, g.state.GameSpecific) {
		t.Fatalf("rebuilt gameSpecific = %#v, want %#v", rebuilt.GameSpecific, g.state.GameSpecific)
	}
	if rebuilt.Phase != domain.PhaseEnded {
		t.Fatalf("rebuilt phase = %s, want ended", rebuilt.Phase)
	}
}

// TestReconstructAppliesMidPlayDisconnect exercises the EntryLeft branch
// that calls OnParticipantLeft during reconstruction, not just during a
// lobby-phase leave.
func TestReconstructAppliesMidPlayDisconnect(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	log := replay.New(fc)
	bc := broadcast.New(8, func(domain.ParticipantID, any) error { return nil }, nil)

	adj := kingofthehill.New()
	init, _ := adj.Init(nil)
	cfg := domain.GameConfig{
		GameType:        kingofthehill.GameType,
		Rounds:          domain.OpenRounds(),
		RoundDeadline:   time.Second,
		MinParticipants: init.MinParticipants,
		MaxParticipants: 3,
	}
	g := New(cfg, init.GameSpecific, Options{MinAlive: init.MinAlive}, fc, adj, log, bc)
	_ = g.handleAddParticipant(domain.ParticipantInfo{ID: "p1", Kind: domain.KindHuman})
	_ = g.handleAddParticipant(domain.ParticipantInfo{ID: "p2", Kind: domain.KindHuman})
	_ = g.handleAddParticipant(domain.ParticipantInfo{ID: "p3", Kind: domain.KindHuman})

	if err := g.handleLeave("p2"); err != nil {
		t.Fatalf("leave p2: %v", err)
	}

	entries := log.Since(0)
	rebuilt, err := Reconstruct(g.ID(), entries, kingofthehill.New())
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if _, ok := rebuilt.Alive["p2"]; ok {
		t.Fatalf("rebuilt alive still contains p2, want it removed")
	}
	if !reflect.DeepEqual(rebuilt.GameSpecific, g.state.GameSpecific) {
		t.Fatalf("rebuilt gameSpecific = %#v, want %#v", rebuilt.GameSpecific, g.state.GameSpecific)
	}
}
