package domain

import (
	"sort"
	"time"
)

// GameState is the authoritative, versioned state of one game.
// It is owned by StateStore and mutated only through RoundScheduler
// transitions; readers must treat a returned GameState as an immutable
// snapshot.
type GameState struct {
	GameID       GameID                          `json:"gameId"`
	Config       GameConfig                      `json:"config"`
	Phase        GamePhase                       `json:"phase"`
	CurrentRound int                             `json:"currentRound"`
	Participants map[ParticipantID]ParticipantInfo `json:"participants"`
	Scores       map[ParticipantID]int           `json:"scores"`
	Alive        map[ParticipantID]struct{}      `json:"-"`
	GameSpecific any                             `json:"gameSpecific,omitempty"`
	Version      uint64                          `json:"version"`
	UpdatedAt    time.Time                       `json:"updatedAt"`
}

// NewGameState builds the initial state for a just-created game (invariant:
// version starts at 0 and is bumped to 1 by the Created transition).
func NewGameState(id GameID, cfg GameConfig) *GameState {
	return &GameState{
		GameID:       id,
		Config:       cfg,
		Phase:        PhaseAwaitingParticipants,
		Participants: make(map[ParticipantID]ParticipantInfo),
		Scores:       make(map[ParticipantID]int),
		Alive:        make(map[ParticipantID]struct{}),
	}
}

// Clone returns a deep-enough copy safe to hand to a reader as a snapshot.
// GameSpecific is not deep-copied: Adjudicators own it and must treat it as
// an immutable value once returned from resolve/init.
func (s *GameState) Clone() *GameState {
	clone := *s
	clone.Participants = make(map[ParticipantID]ParticipantInfo, len(s.Participants))
	for k, v := range s.Participants {
		clone.Participants[k] = v
	}
	clone.Scores = make(map[ParticipantID]int, len(s.Scores))
	for k, v := range s.Scores {
		clone.Scores[k] = v
	}
	clone.Alive = make(map[ParticipantID]struct{}, len(s.Alive))
	for k := range s.Alive {
		clone.Alive[k] = struct{}{}
	}
	return &clone
}

// AliveIDs returns the alive set as a deterministically sorted slice, for
// wire serialization and canonical ordering elsewhere.
func (s *GameState) AliveIDs() []ParticipantID {
	ids := make([]ParticipantID, 0, len(s.Alive))
	for id := range s.Alive {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsAlive reports whether id is currently eligible to act.
func (s *GameState) IsAlive(id ParticipantID) bool {
	_, ok := s.Alive[id]
	return ok
}

// ApplyScoreDeltas accumulates deltas into Scores. Map iteration order does
// not matter here; callers must pass deltas already extracted from one
// RoundResult, applied in the order RoundResolved entries appear in the log.
func (s *GameState) ApplyScoreDeltas(deltas map[ParticipantID]int) {
	for id, delta := range deltas {
		s.Scores[id] += delta
	}
}

// Eliminate removes id from the alive set and marks it eliminated. The
// alive set size is non-increasing by construction: this is the only
// way entries leave Alive besides a voluntary leave.
func (s *GameState) Eliminate(id ParticipantID) {
	delete(s.Alive, id)
	if info, ok := s.Participants[id]; ok {
		info.Status = StatusEliminated
		s.Participants[id] = info
	}
}

// FinalScores returns a copy of the accumulated scores, suitable for the
// game_ended wire message and for replay-determinism comparisons.
func (s *GameState) FinalScores() map[ParticipantID]int {
	out := make(map[ParticipantID]int, len(s.Scores))
	for k, v := range s.Scores {
		out[k] = v
	}
	return out
}
