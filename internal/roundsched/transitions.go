package roundsched

import (
	"time"

	"gamearena/internal/domain"
)

// The functions below are the StateStore's "apply" half: each mutates
// state in place (state is owned exclusively by the calling Game's task)
// and bumps version/updatedAt. Every call here must be paired with the
// matching ReplayEntry append so the two never drift apart.

func bump(state *domain.GameState, now time.Time) {
	state.Version++
	state.UpdatedAt = now
}

func applyCreated(state *domain.GameState, now time.Time) {
	state.Phase = domain.PhaseAwaitingParticipants
	bump(state, now)
}

func applyJoined(state *domain.GameState, info domain.ParticipantInfo) {
	state.Participants[info.ID] = info
	state.Alive[info.ID] = struct{}{}
	state.Scores[info.ID] = 0
	bump(state, info.JoinedAt)
}

func applyLeftDuringLobby(state *domain.GameState, id domain.ParticipantID, now time.Time) {
	delete(state.Participants, id)
	delete(state.Alive, id)
	delete(state.Scores, id)
	bump(state, now)
}

func applyDisconnectedDuringPlay(state *domain.GameState, id domain.ParticipantID, now time.Time) {
	if info, ok := state.Participants[id]; ok {
		info.Status = domain.StatusDisconnected
		state.Participants[id] = info
	}
	bump(state, now)
}

func applyRoundOpened(state *domain.GameState, round int, now time.Time) {
	state.Phase = domain.PhaseActionSubmission
	state.CurrentRound = round
	bump(state, now)
}

func applyResolving(state *domain.GameState, now time.Time) {
	state.Phase = domain.PhaseResolving
	bump(state, now)
}

func applyRoundResolved(state *domain.GameState, result domain.RoundResult, newGameSpecific any) {
	state.ApplyScoreDeltas(result.Outcome.ScoreDeltas)
	for _, id := range result.Outcome.Eliminated {
		state.Eliminate(id)
	}
	state.GameSpecific = newGameSpecific
	bump(state, result.ResolvedAt)
}

func applyEnded(state *domain.GameState, now time.Time) {
	state.Phase = domain.PhaseEnded
	bump(state, now)
}
