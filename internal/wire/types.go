// Package wire defines the session protocol's frame shapes. The teacher
// generates these from protobuf; without a protoc toolchain available here
// the same frame shapes are expressed as plain JSON-tagged structs, which
// satisfies the same "concrete but implementation-chosen" wire encoding.
package wire

import (
	"time"

	"gamearena/internal/domain"
)

// Type is the discriminator every frame carries.
type Type string

const (
	TypePlayerInfo    Type = "player_info"
	TypeCreateGame    Type = "create_game"
	TypeJoinGame      Type = "join_game"
	TypeLeaveGame     Type = "leave_game"
	TypeSubmitAction  Type = "submit_action"
	TypeListGames     Type = "list_games"
	TypePing          Type = "ping"
	TypeGameCreated    Type = "game_created"
	TypeStateUpdate    Type = "game_state_update"
	TypeRoundResult    Type = "round_result"
	TypeGameEnded      Type = "game_ended"
	TypeError          Type = "error"
	TypePong           Type = "pong"
	TypeReconnectToken Type = "reconnect_token"
	TypeGameList       Type = "game_list"
)

// ErrorCode is the wire taxonomy of rejectable conditions.
type ErrorCode string

const (
	ErrInvalidMessage ErrorCode = "INVALID_MESSAGE"
	ErrGameNotFound   ErrorCode = "GAME_NOT_FOUND"
	ErrGameFull       ErrorCode = "GAME_FULL"
	ErrGameStarted    ErrorCode = "GAME_STARTED"
	ErrNotInGame      ErrorCode = "NOT_IN_GAME"
	ErrInvalidAction  ErrorCode = "INVALID_ACTION"
	ErrTimeout        ErrorCode = "TIMEOUT"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
)

// Envelope is the outer frame: Type selects which of the pointer fields
// below is populated.
type Envelope struct {
	Type Type `json:"type"`

	PlayerInfo   *PlayerInfoIn   `json:"playerInfo,omitempty"`
	CreateGame   *CreateGameIn   `json:"createGame,omitempty"`
	JoinGame     *JoinGameIn     `json:"joinGame,omitempty"`
	LeaveGame    *LeaveGameIn    `json:"leaveGame,omitempty"`
	SubmitAction *SubmitActionIn `json:"submitAction,omitempty"`
	ListGames    *ListGamesIn    `json:"listGames,omitempty"`

	GameCreated    *GameCreatedOut    `json:"gameCreated,omitempty"`
	StateUpdate    *StateUpdateOut    `json:"stateUpdate,omitempty"`
	RoundResult    *RoundResultOut    `json:"roundResult,omitempty"`
	GameEnded      *GameEndedOut      `json:"gameEnded,omitempty"`
	Error          *ErrorOut          `json:"error,omitempty"`
	ReconnectToken *ReconnectTokenOut `json:"reconnectToken,omitempty"`
	GameList       *GameListOut       `json:"gameList,omitempty"`
}

type PlayerInfoIn struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Kind  domain.ParticipantKind `json:"kind"`
	Token *string                `json:"token,omitempty"`
}

type CreateGameIn struct {
	GameType        string         `json:"gameType"`
	Rounds          *int           `json:"rounds"`
	Open            bool           `json:"open"`
	RoundDeadlineMs int64          `json:"roundDeadlineMs"`
	MinParticipants int            `json:"minParticipants"`
	MaxParticipants int            `json:"maxParticipants"`
	GameParams      map[string]any `json:"gameParams"`
}

type JoinGameIn struct {
	GameID string `json:"gameId"`
}

type LeaveGameIn struct {
	GameID string `json:"gameId"`
}

type ListGamesIn struct {
	GameType string             `json:"gameType,omitempty"`
	Phases   []domain.GamePhase `json:"phases,omitempty"`
}

type SubmitActionIn struct {
	GameID string        `json:"gameId"`
	Data   ActionDataIn  `json:"data"`
}

type ActionDataIn struct {
	ActionType string         `json:"actionType"`
	Data       map[string]any `json:"data,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
}

type GameCreatedOut struct {
	GameID string           `json:"gameId"`
	Phase  domain.GamePhase `json:"phase"`
}

type StateUpdateOut struct {
	GameID          string                                  `json:"gameId"`
	Version         uint64                                  `json:"version"`
	Round           int                                     `json:"round"`
	MaxRounds       *int                                    `json:"maxRounds"`
	Phase           domain.GamePhase                        `json:"phase"`
	Participants    map[domain.ParticipantID]domain.ParticipantInfo `json:"participants"`
	Scores          map[domain.ParticipantID]int            `json:"scores"`
	Alive           []domain.ParticipantID                  `json:"alive"`
	TimeRemainingMs int64                                   `json:"timeRemainingMs"`
	GameSpecific    any                                     `json:"gameSpecific,omitempty"`
}

type RoundResultOut struct {
	GameID       string                               `json:"gameId"`
	Round        int                                  `json:"round"`
	Actions      map[domain.ParticipantID]domain.Action `json:"actions"`
	Outcome      domain.Outcome                       `json:"outcome"`
	GameSpecific any                                  `json:"gameSpecific,omitempty"`
}

type GameEndedOut struct {
	GameID         string                        `json:"gameId"`
	FinalScores    map[domain.ParticipantID]int  `json:"finalScores"`
	TerminalReason string                        `json:"terminalReason"`
	Analytics      map[string]any                `json:"analytics,omitempty"`
}

type ErrorOut struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// GameSummaryOut is one game's entry in a GameListOut.
type GameSummaryOut struct {
	GameID           string           `json:"gameId"`
	GameType         string           `json:"gameType"`
	Phase            domain.GamePhase `json:"phase"`
	ParticipantCount int              `json:"participantCount"`
}

// GameListOut answers a listGames request.
type GameListOut struct {
	Games []GameSummaryOut `json:"games"`
}

// ReconnectTokenOut carries a signed token a participant can present in a
// later player_info frame's Token field to rebind to the same
// ParticipantID after its transport drops.
type ReconnectTokenOut struct {
	GameID string `json:"gameId"`
	Token  string `json:"token"`
}

// MillisUntil returns the whole milliseconds from now until deadline, or 0
// when deadline is unset or already past; roundsched uses it when
// building a StateUpdateOut.
func MillisUntil(now, deadline time.Time) int64 {
	if deadline.IsZero() {
		return 0
	}
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}
