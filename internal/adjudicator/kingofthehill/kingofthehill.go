// Package kingofthehill implements king_of_the_hill, the reference game
// whose resolution genuinely depends on canonical action order rather than
// just producing the same result regardless of processing order. Positions
// sit on an integer line; participants move, push a rival, or defend.
// Holding position 0 at the end of a round scores a point.
package kingofthehill

import (
	"sort"
	"time"

	"gamearena/internal/adjudicator"
	"gamearena/internal/domain"
)

// GameType is the registry tag for this Adjudicator.
const GameType = "king_of_the_hill"

const (
	ActionMove   = "move"
	ActionPush   = "push"
	ActionDefend = "defend"
)

const (
	defaultBoundary = 5 // positions outside [-boundary, boundary] eliminate a participant
)

// paramsSchema bounds gameParams to the one tunable this game exposes: an
// optional override of the elimination boundary.
const paramsSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"boundary": {"type": "integer", "minimum": 1}
	}
}`

// New constructs a fresh king_of_the_hill Adjudicator.
func New() adjudicator.Adjudicator { return &kingOfTheHill{} }

type kingOfTheHill struct{}

type gameState struct {
	Positions map[domain.ParticipantID]int
	Boundary  int
}

func (g *kingOfTheHill) Init(params map[string]any) (adjudicator.InitResult, error) {
	if err := adjudicator.ValidateParams(paramsSchema, params); err != nil {
		return adjudicator.InitResult{}, domain.ErrInvalidParams(err.Error())
	}
	boundary := defaultBoundary
	if v, ok := params["boundary"]; ok {
		n, ok := v.(float64)
		if !ok || n != float64(int(n)) {
			return adjudicator.InitResult{}, domain.ErrInvalidParams("boundary must be an integer")
		}
		boundary = int(n)
	}
	return adjudicator.InitResult{
		GameSpecific:    &gameState{Positions: make(map[domain.ParticipantID]int), Boundary: boundary},
		MinParticipants: 2,
		MaxParticipants: 8,
		MinAlive:        2,
	}, nil
}

func (g *kingOfTheHill) LegalActionTypes(state *domain.GameState, participant domain.ParticipantID) []string {
	return []string{ActionMove, ActionPush, ActionDefend}
}

func (g *kingOfTheHill) Validate(state *domain.GameState, action domain.Action) error {
	switch action.ActionType {
	case ActionDefend:
		return nil
	case ActionMove:
		if _, ok := directionOf(action); !ok {
			return domain.ErrInvalidAction("move requires a direction of -1 or 1")
		}
		return nil
	case ActionPush:
		if _, ok := directionOf(action); !ok {
			return domain.ErrInvalidAction("push requires a direction of -1 or 1")
		}
		if _, ok := targetOf(action); !ok {
			return domain.ErrInvalidAction("push requires a target participantId")
		}
		return nil
	default:
		return domain.ErrInvalidAction("unknown actionType " + action.ActionType)
	}
}

func (g *kingOfTheHill) DefaultAction(state *domain.GameState, participant domain.ParticipantID) domain.Action {
	return domain.Action{
		ParticipantID: participant,
		Round:         state.CurrentRound,
		ActionType:    ActionDefend,
	}
}

func directionOf(a domain.Action) (int, bool) {
	raw, ok := a.Payload["direction"]
	if !ok {
		return 0, false
	}
	f, ok := raw.(float64)
	if !ok || (f != 1 && f != -1) {
		return 0, false
	}
	return int(f), true
}

func targetOf(a domain.Action) (domain.ParticipantID, bool) {
	raw, ok := a.Payload["target"]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", false
	}
	return domain.ParticipantID(s), true
}

// Resolve is order-sensitive by design: defends are collected in a
// pre-pass so a participant who submitted late still blocks any push
// aimed at it that round, then move/push actions are applied in the
// canonical order (submittedAt ascending, then participantId
// lexicographic). A push lands the target beside the pusher's current
// position rather than offsetting the target's own, so when two rivals
// race to push the same participant the one whose action sorts later
// overwrites the earlier push rather than compounding it.
func (g *kingOfTheHill) Resolve(state *domain.GameState, round int, actions []domain.Action) (adjudicator.ResolveResult, error) {
	gs, _ := state.GameSpecific.(*gameState)
	if gs == nil {
		gs = &gameState{Positions: make(map[domain.ParticipantID]int), Boundary: defaultBoundary}
	}
	boundary := gs.Boundary
	if boundary == 0 {
		boundary = defaultBoundary
	}
	positions := make(map[domain.ParticipantID]int, len(gs.Positions))
	for id, pos := range gs.Positions {
		positions[id] = pos
	}
	for id := range state.Alive {
		if _, ok := positions[id]; !ok {
			positions[id] = 0
		}
	}

	byParticipant := make(map[domain.ParticipantID]domain.Action, len(actions))
	defending := make(map[domain.ParticipantID]bool)
	ordered := make([]domain.Action, len(actions))
	copy(ordered, actions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return domain.CanonicalOrder(ordered[i], ordered[j])
	})

	for _, a := range ordered {
		byParticipant[a.ParticipantID] = a
		if a.ActionType == ActionDefend {
			defending[a.ParticipantID] = true
		}
	}

	for _, a := range ordered {
		switch a.ActionType {
		case ActionMove:
			dir, _ := directionOf(a)
			positions[a.ParticipantID] += dir
		case ActionPush:
			dir, _ := directionOf(a)
			target, _ := targetOf(a)
			if defending[target] {
				continue
			}
			if _, alive := positions[target]; alive {
				// the target lands beside the pusher's current position,
				// which may itself already reflect an earlier move or push
				// this round, so two pushes on the same target overwrite
				// rather than accumulate and the later one in canonical
				// order wins.
				positions[target] = positions[a.ParticipantID] + dir
			}
		}
	}

	var eliminated []domain.ParticipantID
	for id, pos := range positions {
		if pos > boundary || pos < -boundary {
			eliminated = append(eliminated, id)
		}
	}
	sort.Slice(eliminated, func(i, j int) bool { return eliminated[i] < eliminated[j] })
	for _, id := range eliminated {
		delete(positions, id)
	}

	var winners []domain.ParticipantID
	deltas := make(map[domain.ParticipantID]int, len(positions))
	for id, pos := range positions {
		if pos == 0 {
			winners = append(winners, id)
			deltas[id] = 1
		} else {
			deltas[id] = 0
		}
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i] < winners[j] })

	result := domain.RoundResult{
		Round:                round,
		ActionsByParticipant: byParticipant,
		Outcome: domain.Outcome{
			Winners:     winners,
			Eliminated:  eliminated,
			ScoreDeltas: deltas,
		},
		GameSpecificOutcome: positionsSnapshot(positions),
		ResolvedAt:          time.Time{},
	}

	return adjudicator.ResolveResult{
		Result:          result,
		NewGameSpecific: &gameState{Positions: positions, Boundary: boundary},
		Terminal:        false,
	}, nil
}

func positionsSnapshot(positions map[domain.ParticipantID]int) map[domain.ParticipantID]int {
	out := make(map[domain.ParticipantID]int, len(positions))
	for id, pos := range positions {
		out[id] = pos
	}
	return out
}

func (g *kingOfTheHill) OnParticipantLeft(state *domain.GameState, id domain.ParticipantID) any {
	gs, ok := state.GameSpecific.(*gameState)
	if !ok {
		return state.GameSpecific
	}
	next := &gameState{Positions: positionsSnapshot(gs.Positions), Boundary: gs.Boundary}
	delete(next.Positions, id)
	return next
}
