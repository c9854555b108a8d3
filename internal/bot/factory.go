package bot

import "gamearena/internal/domain"

// NewAgent builds an Agent seated as id, defaulting to the
// first-legal-action reference strategy. Generalizes the teacher's
// NewAgent(botID) (which always wired a *StandardBot) to accept any Brain,
// since this engine has no single default card-game strategy to fall back
// on across gameTypes.
func NewAgent(id domain.ParticipantID, strategy Brain) *Agent {
	if strategy == nil {
		strategy = &FirstLegalActionBrain{}
	}
	return &Agent{ID: id, Strategy: strategy}
}

// FirstLegalActionBrain is the reference Brain: it always submits the
// first action type adj.LegalActionTypes offers, with no payload. It
// exists so a kind==model seat can be filled before any real external
// model adapter is wired, not as a game-playing strategy in its own right.
type FirstLegalActionBrain struct{}

func (FirstLegalActionBrain) Decide(state *domain.GameState, legalActionTypes []string, self domain.ParticipantID) Move {
	if len(legalActionTypes) == 0 {
		return Move{}
	}
	return Move{ActionType: legalActionTypes[0]}
}

func (FirstLegalActionBrain) OnEvent(domain.ReplayEntry) {}
