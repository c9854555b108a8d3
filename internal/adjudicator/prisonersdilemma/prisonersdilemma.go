// Package prisonersdilemma implements the prisoners_dilemma Adjudicator:
// two participants each choose cooperate or defect, scored against the
// standard payoff matrix, for a configured number of rounds.
package prisonersdilemma

import (
	"time"

	"gamearena/internal/adjudicator"
	"gamearena/internal/domain"
)

// GameType is the registry tag for this Adjudicator.
const GameType = "prisoners_dilemma"

const (
	ActionCooperate = "cooperate"
	ActionDefect    = "defect"
)

// paramsSchema bounds gameParams to the four payoff-matrix entries this
// game exposes, each independently overridable; unrecognized keys fail
// Init with InvalidParams.
const paramsSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"temptation": {"type": "integer"},
		"reward": {"type": "integer"},
		"punishment": {"type": "integer"},
		"sucker": {"type": "integer"}
	}
}`

// New constructs a fresh prisoners_dilemma Adjudicator.
func New() adjudicator.Adjudicator { return &prisonersDilemma{} }

type prisonersDilemma struct{}

// gameSpecific carries the payoff matrix resolved once at Init from
// gameParams, replayed unchanged through every round.
type gameSpecific struct {
	Temptation, Reward, Punishment, Sucker int
}

func defaultPayoffs() gameSpecific {
	return gameSpecific{Temptation: 5, Reward: 3, Punishment: 1, Sucker: 0}
}

func (g *prisonersDilemma) Init(params map[string]any) (adjudicator.InitResult, error) {
	if err := adjudicator.ValidateParams(paramsSchema, params); err != nil {
		return adjudicator.InitResult{}, domain.ErrInvalidParams(err.Error())
	}
	gs := defaultPayoffs()
	for key, dst := range map[string]*int{
		"temptation": &gs.Temptation,
		"reward":     &gs.Reward,
		"punishment": &gs.Punishment,
		"sucker":     &gs.Sucker,
	} {
		v, ok := params[key]
		if !ok {
			continue
		}
		n, ok := v.(float64)
		if !ok || n != float64(int(n)) {
			return adjudicator.InitResult{}, domain.ErrInvalidParams(key + " must be an integer")
		}
		*dst = int(n)
	}
	return adjudicator.InitResult{
		GameSpecific:    &gs,
		MinParticipants: 2,
		MaxParticipants: 2,
		MinAlive:        2,
	}, nil
}

func (g *prisonersDilemma) LegalActionTypes(state *domain.GameState, participant domain.ParticipantID) []string {
	return []string{ActionCooperate, ActionDefect}
}

func (g *prisonersDilemma) Validate(state *domain.GameState, action domain.Action) error {
	switch action.ActionType {
	case ActionCooperate, ActionDefect:
		return nil
	default:
		return domain.ErrInvalidAction("unknown actionType " + action.ActionType)
	}
}

// DefaultAction imputes defect for a participant that misses the deadline;
// defecting is the dominant strategy and never hands the other player a
// forced advantage neither of them chose.
func (g *prisonersDilemma) DefaultAction(state *domain.GameState, participant domain.ParticipantID) domain.Action {
	return domain.Action{
		ParticipantID: participant,
		Round:         state.CurrentRound,
		ActionType:    ActionDefect,
	}
}

// payoff returns (a's delta, b's delta) for a's choice against b's choice,
// under the given payoff matrix.
func payoff(gs gameSpecific, a, b string) (int, int) {
	switch {
	case a == ActionCooperate && b == ActionCooperate:
		return gs.Reward, gs.Reward
	case a == ActionCooperate && b == ActionDefect:
		return gs.Sucker, gs.Temptation
	case a == ActionDefect && b == ActionCooperate:
		return gs.Temptation, gs.Sucker
	default:
		return gs.Punishment, gs.Punishment
	}
}

func (g *prisonersDilemma) Resolve(state *domain.GameState, round int, actions []domain.Action) (adjudicator.ResolveResult, error) {
	gs := defaultPayoffs()
	if existing, ok := state.GameSpecific.(*gameSpecific); ok && existing != nil {
		gs = *existing
	}

	byParticipant := make(map[domain.ParticipantID]domain.Action, len(actions))
	for _, a := range actions {
		byParticipant[a.ParticipantID] = a
	}

	deltas := make(map[domain.ParticipantID]int, len(actions))
	if len(actions) == 2 {
		a, b := actions[0], actions[1]
		da, db := payoff(gs, a.ActionType, b.ActionType)
		deltas[a.ParticipantID] = da
		deltas[b.ParticipantID] = db
	} else {
		for _, a := range actions {
			deltas[a.ParticipantID] = 0
		}
	}

	var winners []domain.ParticipantID
	best := -1
	for id, d := range deltas {
		if d > best {
			best = d
			winners = []domain.ParticipantID{id}
		} else if d == best {
			winners = append(winners, id)
		}
	}
	if len(winners) == len(deltas) {
		winners = nil
	}

	result := domain.RoundResult{
		Round:                round,
		ActionsByParticipant: byParticipant,
		Outcome: domain.Outcome{
			Winners:     winners,
			ScoreDeltas: deltas,
		},
		ResolvedAt: time.Time{},
	}

	return adjudicator.ResolveResult{
		Result:          result,
		NewGameSpecific: state.GameSpecific,
		Terminal:        false,
	}, nil
}

func (g *prisonersDilemma) OnParticipantLeft(state *domain.GameState, id domain.ParticipantID) any {
	return state.GameSpecific
}
