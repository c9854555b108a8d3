package domain

import "time"

// ReplayEntryKind tags the variant held by a ReplayEntry.
type ReplayEntryKind string

const (
	EntryCreated        ReplayEntryKind = "created"
	EntryJoined         ReplayEntryKind = "joined"
	EntryLeft           ReplayEntryKind = "left"
	EntryStarted        ReplayEntryKind = "started"
	EntryRoundOpened    ReplayEntryKind = "roundOpened"
	EntryActionAccepted ReplayEntryKind = "actionAccepted"
	EntryActionRejected ReplayEntryKind = "actionRejected"
	EntryRoundResolved  ReplayEntryKind = "roundResolved"
	EntryStateVersion   ReplayEntryKind = "stateVersion"
	EntryEnded          ReplayEntryKind = "ended"
)

// ReplayEntry is a single append-only record in a game's ReplayLog. Go has
// no sum type, so the variant is carried as a Kind tag plus the one
// populated payload pointer for that Kind — callers switch on Kind.
type ReplayEntry struct {
	Index int             `json:"index"`
	Kind  ReplayEntryKind  `json:"kind"`
	At    time.Time        `json:"at"`

	Created        *CreatedPayload        `json:"created,omitempty"`
	Joined         *ParticipantInfo       `json:"joined,omitempty"`
	Left           *LeftPayload           `json:"left,omitempty"`
	RoundOpened    *RoundOpenedPayload    `json:"roundOpened,omitempty"`
	ActionAccepted *Action                `json:"actionAccepted,omitempty"`
	ActionRejected *ActionRejectedPayload `json:"actionRejected,omitempty"`
	RoundResolved  *RoundResult           `json:"roundResolved,omitempty"`
	StateVersion   *uint64                `json:"stateVersion,omitempty"`
	Ended          *EndedPayload          `json:"ended,omitempty"`

	// NewGameSpecific is the Adjudicator's authoritative post-round
	// GameSpecific value, set only alongside RoundResolved. It is kept
	// separate from RoundResolved.GameSpecificOutcome, which an Adjudicator
	// may shape purely for display and which is not guaranteed to be
	// sufficient, by itself, to resume or reconstruct play.
	NewGameSpecific any `json:"newGameSpecific,omitempty"`
}

type CreatedPayload struct {
	Config GameConfig `json:"config"`
}

type LeftPayload struct {
	ParticipantID ParticipantID `json:"participantId"`
}

type RoundOpenedPayload struct {
	Round    int       `json:"round"`
	Deadline time.Time `json:"deadline"`
}

type ActionRejectedPayload struct {
	ParticipantID ParticipantID `json:"participantId"`
	Round         int           `json:"round"`
	Reason        string        `json:"reason"`
}

type EndedPayload struct {
	FinalScores    map[ParticipantID]int `json:"finalScores"`
	TerminalReason string                `json:"terminalReason"`
}
