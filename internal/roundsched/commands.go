package roundsched

import "gamearena/internal/domain"

type addParticipantCmd struct {
	info   domain.ParticipantInfo
	result chan error
}

type startGameCmd struct {
	result chan error
}

type leaveCmd struct {
	id     domain.ParticipantID
	result chan error
}

type submitActionCmd struct {
	action domain.Action
	result chan error
}

type snapshotCmd struct {
	result chan *domain.GameState
}

type deadlineFiredCmd struct {
	gen uint64
}

type destroyCmd struct {
	admin  bool
	result chan error
}
