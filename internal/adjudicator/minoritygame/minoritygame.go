// Package minoritygame implements the minority_game Adjudicator: each
// participant chooses 0 or 1; whichever choice is the smaller group that
// round wins a point. A tie (even split) crowns no winner.
package minoritygame

import (
	"time"

	"gamearena/internal/adjudicator"
	"gamearena/internal/domain"
)

// GameType is the registry tag for this Adjudicator.
const GameType = "minority_game"

const (
	ActionChoose0 = "choose_0"
	ActionChoose1 = "choose_1"
)

// paramsSchema bounds gameParams to the one tunable this game exposes:
// an optional reward-per-round for landing in the minority.
const paramsSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"rewardForMinority": {"type": "integer", "minimum": 1}
	}
}`

// New constructs a fresh minority_game Adjudicator.
func New() adjudicator.Adjudicator { return &minorityGame{} }

type minorityGame struct{}

// gameSpecific carries the per-game reward, resolved once at Init from
// gameParams and then replayed unchanged through every round's state.
type gameSpecific struct {
	RewardForMinority int
}

func (g *minorityGame) Init(params map[string]any) (adjudicator.InitResult, error) {
	if err := adjudicator.ValidateParams(paramsSchema, params); err != nil {
		return adjudicator.InitResult{}, domain.ErrInvalidParams(err.Error())
	}
	reward := 1
	if v, ok := params["rewardForMinority"]; ok {
		n, ok := v.(float64)
		if !ok || n != float64(int(n)) {
			return adjudicator.InitResult{}, domain.ErrInvalidParams("rewardForMinority must be an integer")
		}
		reward = int(n)
	}
	return adjudicator.InitResult{
		GameSpecific:    &gameSpecific{RewardForMinority: reward},
		MinParticipants: 2,
		MaxParticipants: 16,
		MinAlive:        2,
	}, nil
}

func (g *minorityGame) LegalActionTypes(state *domain.GameState, participant domain.ParticipantID) []string {
	return []string{ActionChoose0, ActionChoose1}
}

func (g *minorityGame) Validate(state *domain.GameState, action domain.Action) error {
	switch action.ActionType {
	case ActionChoose0, ActionChoose1:
		return nil
	default:
		return domain.ErrInvalidAction("unknown actionType " + action.ActionType)
	}
}

// DefaultAction imputes choose_0 for a participant that misses the
// deadline.
func (g *minorityGame) DefaultAction(state *domain.GameState, participant domain.ParticipantID) domain.Action {
	return domain.Action{
		ParticipantID: participant,
		Round:         state.CurrentRound,
		ActionType:    ActionChoose0,
	}
}

func (g *minorityGame) Resolve(state *domain.GameState, round int, actions []domain.Action) (adjudicator.ResolveResult, error) {
	var group0, group1 []domain.ParticipantID
	byParticipant := make(map[domain.ParticipantID]domain.Action, len(actions))
	for _, a := range actions {
		byParticipant[a.ParticipantID] = a
		if a.ActionType == ActionChoose0 {
			group0 = append(group0, a.ParticipantID)
		} else {
			group1 = append(group1, a.ParticipantID)
		}
	}

	var winners []domain.ParticipantID
	switch {
	case len(group0) < len(group1):
		winners = group0
	case len(group1) < len(group0):
		winners = group1
	default:
		winners = nil // tie: no winner
	}

	reward := 1
	if gs, ok := state.GameSpecific.(*gameSpecific); ok && gs != nil {
		reward = gs.RewardForMinority
	}

	deltas := make(map[domain.ParticipantID]int, len(actions))
	for _, a := range actions {
		deltas[a.ParticipantID] = 0
	}
	for _, w := range winners {
		deltas[w] = reward
	}

	result := domain.RoundResult{
		Round:                round,
		ActionsByParticipant: byParticipant,
		Outcome: domain.Outcome{
			Winners:     winners,
			ScoreDeltas: deltas,
		},
		ResolvedAt: time.Time{}, // stamped by the caller (StateStore) on apply
	}

	return adjudicator.ResolveResult{
		Result:          result,
		NewGameSpecific: state.GameSpecific,
		Terminal:        false,
	}, nil
}

func (g *minorityGame) OnParticipantLeft(state *domain.GameState, id domain.ParticipantID) any {
	return state.GameSpecific
}
