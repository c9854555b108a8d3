package domain

import "time"

// ParticipantKind distinguishes a human peer from an externally-driven model.
type ParticipantKind string

const (
	KindHuman ParticipantKind = "human"
	KindModel ParticipantKind = "model"
)

// ParticipantStatus tracks a seat's membership lifecycle within a game.
type ParticipantStatus string

const (
	StatusActive       ParticipantStatus = "active"
	StatusDisconnected ParticipantStatus = "disconnected"
	StatusEliminated   ParticipantStatus = "eliminated"
	StatusLeft         ParticipantStatus = "left"
)

// ParticipantInfo is the metadata the engine keeps about one seat.
type ParticipantInfo struct {
	ID          ParticipantID     `json:"id"`
	Kind        ParticipantKind   `json:"kind"`
	DisplayName string            `json:"displayName"`
	JoinedAt    time.Time         `json:"joinedAt"`
	Status      ParticipantStatus `json:"status"`
}
