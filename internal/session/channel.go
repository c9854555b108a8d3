// Package session implements the protocol dispatcher standing between a
// transport-level connection and GameManager: message parsing, identity,
// admission control, idle-timeout liveness, and reconnection tokens.
package session

import (
	"gamearena/internal/domain"
)

// Channel is one connected peer's transport, abstracted away from any
// concrete wire (websocket, in-process test double, the Nakama presence
// adapter in internal/ports/nakama). Send delivers one outbound frame; Close tears the
// transport down.
type Channel interface {
	Send(msg any) error
	Close() error
}

// registry tracks the Channel currently bound to each identified
// participant, so Broadcaster's Deliver hook (keyed only by
// ParticipantID) can reach the right transport.
type registry struct {
	channels map[domain.ParticipantID]Channel
}

func newRegistry() *registry {
	return &registry{channels: make(map[domain.ParticipantID]Channel)}
}

func (r *registry) bind(id domain.ParticipantID, ch Channel) {
	r.channels[id] = ch
}

func (r *registry) unbind(id domain.ParticipantID) {
	delete(r.channels, id)
}

func (r *registry) get(id domain.ParticipantID) (Channel, bool) {
	ch, ok := r.channels[id]
	return ch, ok
}
