package roundsched

import (
	"fmt"

	"gamearena/internal/adjudicator"
	"gamearena/internal/domain"
)

// Reconstruct folds a game's ReplayLog entries into a fresh GameState,
// using the same apply* functions the live Game task applies as each
// event happens. adj is consulted for Init, to seed the starting
// GameSpecific from the created entry's gameParams, and for
// OnParticipantLeft, to reproduce a mid-play disconnect's effect on
// GameSpecific; every
// roundResolved entry already carries the Outcome and GameSpecific the
// original Adjudicator.Resolve call produced, so Resolve itself is never
// called again. This is what makes replay determinism checkable: the
// same entries must always fold to the same state.
func Reconstruct(gameID domain.GameID, entries []domain.ReplayEntry, adj adjudicator.Adjudicator) (*domain.GameState, error) {
	var state *domain.GameState

	for _, e := range entries {
		switch e.Kind {
		case domain.EntryCreated:
			if e.Created == nil {
				return nil, fmt.Errorf("replay: created entry at index %d missing payload", e.Index)
			}
			state = domain.NewGameState(gameID, e.Created.Config)
			init, err := adj.Init(e.Created.Config.GameParams)
			if err != nil {
				return nil, fmt.Errorf("replay: init adjudicator for created entry at index %d: %w", e.Index, err)
			}
			state.GameSpecific = init.GameSpecific
			applyCreated(state, e.At)

		case domain.EntryJoined:
			if state == nil || e.Joined == nil {
				return nil, fmt.Errorf("replay: joined entry at index %d before created or missing payload", e.Index)
			}
			applyJoined(state, *e.Joined)

		case domain.EntryLeft:
			if state == nil || e.Left == nil {
				return nil, fmt.Errorf("replay: left entry at index %d before created or missing payload", e.Index)
			}
			id := e.Left.ParticipantID
			if _, ok := state.Participants[id]; !ok {
				continue // idempotent, mirrors Game.handleLeave
			}
			switch state.Phase {
			case domain.PhaseAwaitingParticipants:
				applyLeftDuringLobby(state, id, e.At)
			case domain.PhaseEnded:
			default:
				applyDisconnectedDuringPlay(state, id, e.At)
				state.GameSpecific = adj.OnParticipantLeft(state, id)
			}

		case domain.EntryRoundOpened:
			if state == nil || e.RoundOpened == nil {
				return nil, fmt.Errorf("replay: roundOpened entry at index %d before created or missing payload", e.Index)
			}
			applyRoundOpened(state, e.RoundOpened.Round, e.At)

		case domain.EntryActionAccepted, domain.EntryActionRejected, domain.EntryStateVersion:
			// logged for audit/debugging; no GameState mutation to replay.

		case domain.EntryRoundResolved:
			if state == nil || e.RoundResolved == nil {
				return nil, fmt.Errorf("replay: roundResolved entry at index %d before created or missing payload", e.Index)
			}
			applyResolving(state, e.At)
			applyRoundResolved(state, *e.RoundResolved, e.NewGameSpecific)

		case domain.EntryEnded:
			if state == nil {
				return nil, fmt.Errorf("replay: ended entry at index %d before created", e.Index)
			}
			applyEnded(state, e.At)

		default:
			return nil, fmt.Errorf("replay: unknown entry kind %q at index %d", e.Kind, e.Index)
		}
	}

	if state == nil {
		return nil, fmt.Errorf("replay: no entries to reconstruct from")
	}
	return state, nil
}
