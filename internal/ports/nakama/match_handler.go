// Package nakama is the optional Nakama host adapter: it lets a deployment
// run the session protocol inside a Nakama server process instead of (or
// alongside) the standalone websocket gateway, reusing Nakama's own
// matchmaking, presence tracking, and client SDKs. Generalized from the
// teacher's tienlen_match MatchState/matchHandler, which wired a
// Tien-Len-specific four-seat *domain.Game directly into runtime.Match;
// here the handler is a thin presence<->Channel bridge in front of the
// same Dispatcher the websocket gateway uses, so neither the game rules
// nor the session protocol are duplicated per transport.
package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"gamearena/internal/domain"
	"gamearena/internal/session"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchName is the name registered with Nakama's initializer.
const MatchName = "gamearena_match"

// OpCodeEnvelope is the single opcode carried by every Nakama match data
// message; the session protocol's own wire.Envelope.Type discriminates
// from there, so there is no need for Nakama-level opcode-per-message-kind
// the way the teacher's pb.OpCode enum did for its protobuf frames.
const OpCodeEnvelope = 1

// sharedDispatcher is set once by RegisterDispatcher, which the process
// entrypoint calls before InitModule, mirroring the teacher's
// package-level vivoxService var: Nakama's NewMatch factory signature is
// fixed by the runtime and cannot take extra constructor arguments, so the
// already-built Dispatcher shared by every connection in the process is
// reached through a package var instead.
var sharedDispatcher *session.Dispatcher

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// matchState tracks which Nakama presences this match has bridged into the
// Dispatcher so far, and their ParticipantID mapping in both directions.
type matchState struct {
	presences map[string]runtime.Presence
	ids       map[string]domain.ParticipantID
	userIDs   map[domain.ParticipantID]string
}

func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Info("MatchInit: bridging a gamearena match onto the shared dispatcher.")
	state := &matchState{
		presences: make(map[string]runtime.Presence),
		ids:       make(map[string]domain.ParticipantID),
		userIDs:   make(map[domain.ParticipantID]string),
	}
	tickRate := 5
	return state, tickRate, ""
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	if sharedDispatcher == nil {
		logger.Error("MatchJoin: no dispatcher registered; RegisterDispatcher must be called before InitModule")
		return state
	}
	for _, p := range presences {
		id := domain.NewParticipantID()
		ms.presences[p.GetUserId()] = p
		ms.ids[p.GetUserId()] = id
		ms.userIDs[id] = p.GetUserId()
		sharedDispatcher.Connect(id, &presenceChannel{dispatcher: dispatcher, presence: p})
		logger.Debug("MatchJoin: bound user %s to participant %s", p.GetUserId(), id)
	}
	return ms
}

func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	for _, p := range presences {
		id, found := ms.ids[p.GetUserId()]
		if !found {
			continue
		}
		if sharedDispatcher != nil {
			sharedDispatcher.Disconnect(id)
		}
		delete(ms.presences, p.GetUserId())
		delete(ms.ids, p.GetUserId())
		delete(ms.userIDs, id)
	}
	return ms
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		return state
	}
	if sharedDispatcher == nil {
		return ms
	}
	for _, msg := range messages {
		id, found := ms.ids[msg.GetUserId()]
		if !found {
			logger.Warn("MatchLoop: message from unbound user %s", msg.GetUserId())
			continue
		}
		sharedDispatcher.HandleFrame(id, msg.GetData())
	}
	return ms
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	ms, ok := state.(*matchState)
	if !ok {
		return state
	}
	if sharedDispatcher != nil {
		for id := range ms.userIDs {
			sharedDispatcher.Disconnect(id)
		}
	}
	return ms
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

// presenceChannel adapts one Nakama presence into a session.Channel by
// targeting Nakama's own dispatcher.BroadcastMessage at that single
// presence, the way the teacher's broadcastEvent built a one-presence
// recipients slice for a targeted send.
type presenceChannel struct {
	dispatcher runtime.MatchDispatcher
	presence   runtime.Presence
}

func (c *presenceChannel) Send(msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.dispatcher.BroadcastMessage(OpCodeEnvelope, b, []runtime.Presence{c.presence}, nil, true)
}

func (c *presenceChannel) Close() error {
	return nil
}
