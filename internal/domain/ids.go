// Package domain holds the core value types of the game orchestration
// engine: identifiers, configuration, state, actions, and the replay log's
// entry shapes. Nothing in this package performs I/O.
package domain

import "github.com/google/uuid"

// GameID opaquely identifies one game instance for its entire lifetime.
type GameID string

// NewGameID allocates a process-wide unique GameID.
func NewGameID() GameID {
	return GameID(uuid.New().String())
}

// ParticipantID opaquely identifies one seat within a single game.
type ParticipantID string

// NewParticipantID allocates a GameID-scoped unique ParticipantID.
func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.New().String())
}
