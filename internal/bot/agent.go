// Package bot implements the in-process reference external-model adapter:
// a stand-in that drives a kind==model seat the same way a real external
// model adapter would, producing a submit_action off each
// game_state_update, without embedding any actual model. Generalized from
// the teacher's Agent/Brain split, which drove a Tien-Len seat off
// card-strength heuristics instead of an adjudicator-agnostic contract.
package bot

import (
	"gamearena/internal/adjudicator"
	"gamearena/internal/domain"
)

// Move is one decision a Brain hands back for its seat.
type Move struct {
	ActionType string
	Payload    map[string]any
	Reasoning  string
}

// Brain is the pluggable decision strategy a Agent delegates to, mirroring
// the teacher's Brain interface (CalculateMove/OnEvent) generalized away
// from Tien-Len's *domain.Game/*domain.Player types to the engine's
// adjudicator-agnostic GameState and legal-action-type hints.
type Brain interface {
	Decide(state *domain.GameState, legalActionTypes []string, self domain.ParticipantID) Move
	OnEvent(entry domain.ReplayEntry)
}

// Agent drives one kind==model seat by asking its Brain for a Move each
// time it is prompted, then turning that Move into a domain.Action.
type Agent struct {
	ID       domain.ParticipantID
	Strategy Brain
}

// Act computes this agent's action for the current round, using adj's
// LegalActionTypes as the early hint the real wire dispatcher would give
// an external model.
func (a *Agent) Act(adj adjudicator.Adjudicator, state *domain.GameState) domain.Action {
	legal := adj.LegalActionTypes(state, a.ID)
	move := a.Strategy.Decide(state, legal, a.ID)
	return domain.Action{
		ParticipantID: a.ID,
		ActionType:    move.ActionType,
		Payload:       move.Payload,
		Reasoning:     move.Reasoning,
	}
}

// OnEvent forwards a replay entry to the underlying Brain so it can update
// any internal model of the game before its next Act call.
func (a *Agent) OnEvent(entry domain.ReplayEntry) {
	a.Strategy.OnEvent(entry)
}
