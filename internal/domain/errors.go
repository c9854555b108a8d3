package domain

import "errors"

// Fixed sentinel errors, mirrored onto the wire error taxonomy by the
// session dispatcher.
var (
	ErrGameNotFound   = errors.New("game not found")
	ErrGameFull       = errors.New("game full")
	ErrGameStarted    = errors.New("game already started")
	ErrNotInGame      = errors.New("participant not in game")
	ErrNotInActionPhase = errors.New("game not in action submission phase")
	ErrDuplicateAction  = errors.New("action already submitted this round")
	ErrNotAParticipant  = errors.New("participant id not recognized")
	ErrNotAlive         = errors.New("participant is not alive")
	ErrTimeout          = errors.New("action received after round deadline")
	ErrRateLimited      = errors.New("rate limited")
)

// InvalidActionError carries a human-readable reason an action was
// rejected, for returning to the submitting participant.
type InvalidActionError struct {
	Reason string
}

func (e *InvalidActionError) Error() string { return "invalid action: " + e.Reason }

// ErrInvalidAction builds an InvalidActionError.
func ErrInvalidAction(reason string) error { return &InvalidActionError{Reason: reason} }

// InvalidParamsError reports that a GameConfig or its gameParams failed
// validation at the Adjudicator boundary.
type InvalidParamsError struct {
	Reason string
}

func (e *InvalidParamsError) Error() string { return "invalid params: " + e.Reason }

// ErrInvalidParams builds an InvalidParamsError.
func ErrInvalidParams(reason string) error { return &InvalidParamsError{Reason: reason} }
