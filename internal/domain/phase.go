package domain

// GamePhase is a value of the RoundScheduler's state machine.
type GamePhase string

const (
	PhaseAwaitingParticipants GamePhase = "awaitingParticipants"
	PhaseActionSubmission     GamePhase = "actionSubmission"
	PhaseResolving            GamePhase = "resolving"
	PhaseEnded                GamePhase = "ended"
)
