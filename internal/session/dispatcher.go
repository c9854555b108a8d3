package session

import (
	"encoding/json"
	"sync"
	"time"

	"gamearena/internal/admission"
	"gamearena/internal/clock"
	"gamearena/internal/domain"
	"gamearena/internal/gamemanager"
	"gamearena/internal/wire"
)

// identity is the per-connection bookkeeping the dispatcher keeps until a
// participant's games are all over; it is independent of any one Channel
// so a reconnect can rebind a fresh Channel to the same ParticipantID.
type identity struct {
	kind        domain.ParticipantKind
	displayName string
	lastSeen    time.Time
}

// Dispatcher parses inbound frames, enforces AdmissionControl and the idle
// timeout, and routes the rest to GameManager. One Dispatcher is shared by
// every connection a process serves.
type Dispatcher struct {
	manager     *gamemanager.Manager
	admission   *admission.Control
	clock       clock.Clock
	idleTimeout time.Duration
	reconnect   *ReconnectIssuer

	mu      sync.Mutex
	reg     *registry
	idents  map[domain.ParticipantID]*identity
	aliases map[domain.ParticipantID]domain.ParticipantID
}

// New builds a Dispatcher. manager routes accepted operations;
// admissionControl gates every inbound frame; idleTimeout bounds how long
// a connection may go silent before CheckIdle reports it as stale.
// reconnect may be nil, which disables reconnection-token issuance and
// verification entirely.
func New(manager *gamemanager.Manager, admissionControl *admission.Control, c clock.Clock, idleTimeout time.Duration, reconnect *ReconnectIssuer) *Dispatcher {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	return &Dispatcher{
		manager:     manager,
		admission:   admissionControl,
		clock:       c,
		idleTimeout: idleTimeout,
		reconnect:   reconnect,
		reg:         newRegistry(),
		idents:      make(map[domain.ParticipantID]*identity),
		aliases:     make(map[domain.ParticipantID]domain.ParticipantID),
	}
}

// Connect registers a freshly accepted transport under id, defaulting its
// kind to human until a player_info frame says otherwise.
func (d *Dispatcher) Connect(id domain.ParticipantID, ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reg.bind(id, ch)
	d.idents[id] = &identity{kind: domain.KindHuman, lastSeen: d.clock.Now()}
}

// Disconnect tears down bookkeeping for id; it does not itself leave any
// game the participant was in — callers decide whether a disconnect
// should also leave. id is resolved through any reconnect alias first, so
// disconnecting the transport that a rebind migrated away from tears down
// the right Channel.
func (d *Dispatcher) Disconnect(id domain.ParticipantID) {
	d.mu.Lock()
	resolved := d.resolveLocked(id)
	delete(d.aliases, id)
	ch, ok := d.reg.get(resolved)
	d.reg.unbind(resolved)
	delete(d.idents, resolved)
	d.mu.Unlock()
	if ok {
		_ = ch.Close()
	}
	d.admission.Forget(resolved)
}

// resolveLocked follows id through any reconnect-rebind chain to the
// stable ParticipantID it currently aliases. Callers must hold d.mu.
func (d *Dispatcher) resolveLocked(id domain.ParticipantID) domain.ParticipantID {
	for {
		next, ok := d.aliases[id]
		if !ok {
			return id
		}
		id = next
	}
}

func (d *Dispatcher) resolve(id domain.ParticipantID) domain.ParticipantID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolveLocked(id)
}

// rebind migrates from's live Channel and identity onto to, so a
// reconnecting peer's freshly assigned ParticipantID becomes an alias for
// the one already known to GameManager. Safe to call even if to's
// original transport already disconnected.
func (d *Dispatcher) rebind(from, to domain.ParticipantID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if from == to {
		return
	}
	if ch, ok := d.reg.get(from); ok {
		d.reg.unbind(from)
		d.reg.bind(to, ch)
	}
	if ident, ok := d.idents[from]; ok {
		delete(d.idents, from)
		d.idents[to] = ident
	}
	d.aliases[from] = to
}

// Deliver is the broadcast.Deliver hook: it looks up id's current Channel
// and forwards msg, so Broadcaster stays transport-agnostic.
func (d *Dispatcher) Deliver(id domain.ParticipantID, msg any) error {
	d.mu.Lock()
	ch, ok := d.reg.get(id)
	d.mu.Unlock()
	if !ok {
		return domain.ErrNotInGame
	}
	return ch.Send(msg)
}

// CheckIdle returns every connected participant whose last inbound frame
// is older than idleTimeout as of now; the caller (the transport layer)
// is responsible for actually closing those connections.
func (d *Dispatcher) CheckIdle(now time.Time) []domain.ParticipantID {
	d.mu.Lock()
	defer d.mu.Unlock()
	var stale []domain.ParticipantID
	for id, ident := range d.idents {
		if now.Sub(ident.lastSeen) > d.idleTimeout {
			stale = append(stale, id)
		}
	}
	return stale
}

// HandleFrame parses one raw inbound message from id and routes it. A
// malformed frame or a rate-limited one yields an error frame; a
// malformed frame also closes the channel, per the dispatcher's liveness
// contract.
func (d *Dispatcher) HandleFrame(id domain.ParticipantID, raw []byte) {
	id = d.resolve(id)
	d.touch(id)

	ok, forceClose := d.admission.Allow(id)
	if !ok {
		d.sendError(id, wire.ErrRateLimited, "rate limited")
		if forceClose {
			d.Disconnect(id)
		}
		return
	}

	var env wire.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.sendError(id, wire.ErrInvalidMessage, "malformed message")
		d.Disconnect(id)
		return
	}

	switch env.Type {
	case wire.TypePing:
		d.send(id, wire.Envelope{Type: wire.TypePong})
	case wire.TypePlayerInfo:
		d.handlePlayerInfo(id, env.PlayerInfo)
	case wire.TypeCreateGame:
		d.handleCreateGame(id, env.CreateGame)
	case wire.TypeJoinGame:
		d.handleJoinGame(id, env.JoinGame)
	case wire.TypeLeaveGame:
		d.handleLeaveGame(id, env.LeaveGame)
	case wire.TypeSubmitAction:
		d.handleSubmitAction(id, env.SubmitAction)
	case wire.TypeListGames:
		d.handleListGames(id, env.ListGames)
	default:
		d.sendError(id, wire.ErrInvalidMessage, "unknown message type")
	}
}

func (d *Dispatcher) touch(id domain.ParticipantID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ident, ok := d.idents[id]; ok {
		ident.lastSeen = d.clock.Now()
	}
}

func (d *Dispatcher) handlePlayerInfo(id domain.ParticipantID, in *wire.PlayerInfoIn) {
	if in == nil {
		d.sendError(id, wire.ErrInvalidMessage, "missing playerInfo payload")
		return
	}
	if in.Token != nil && d.reconnect != nil {
		_, pid, err := d.reconnect.Verify(*in.Token)
		if err != nil {
			d.sendError(id, wire.ErrInvalidMessage, "invalid reconnect token")
			return
		}
		d.rebind(id, pid)
		id = pid
	}
	d.mu.Lock()
	ident, ok := d.idents[id]
	if !ok {
		ident = &identity{lastSeen: d.clock.Now()}
		d.idents[id] = ident
	}
	ident.kind = in.Kind
	ident.displayName = in.Name
	d.mu.Unlock()
}

// issueReconnectToken sends id a fresh reconnection token for gameID, if
// this Dispatcher was built with a ReconnectIssuer.
func (d *Dispatcher) issueReconnectToken(id domain.ParticipantID, gameID domain.GameID) {
	if d.reconnect == nil {
		return
	}
	tok, err := d.reconnect.Issue(gameID, id)
	if err != nil {
		return
	}
	d.send(id, wire.Envelope{Type: wire.TypeReconnectToken, ReconnectToken: &wire.ReconnectTokenOut{
		GameID: string(gameID),
		Token:  tok,
	}})
}

func (d *Dispatcher) handleCreateGame(id domain.ParticipantID, in *wire.CreateGameIn) {
	if in == nil {
		d.sendError(id, wire.ErrInvalidMessage, "missing createGame payload")
		return
	}
	rounds := domain.OpenRounds()
	if !in.Open {
		n := 0
		if in.Rounds != nil {
			n = *in.Rounds
		}
		rounds = domain.FixedRounds(n)
	}
	cfg := domain.GameConfig{
		GameType:        in.GameType,
		Rounds:          rounds,
		RoundDeadline:   time.Duration(in.RoundDeadlineMs) * time.Millisecond,
		MinParticipants: in.MinParticipants,
		MaxParticipants: in.MaxParticipants,
		GameParams:      in.GameParams,
	}
	gameID, err := d.manager.CreateGame(cfg)
	if err != nil {
		d.sendError(id, wire.ErrInvalidMessage, err.Error())
		return
	}
	if err := d.manager.JoinGame(gameID, d.participantInfo(id)); err != nil {
		d.sendError(id, errorCode(err), err.Error())
		return
	}
	snap, _ := d.manager.Snapshot(gameID)
	phase := domain.PhaseAwaitingParticipants
	if snap != nil {
		phase = snap.Phase
	}
	d.send(id, wire.Envelope{Type: wire.TypeGameCreated, GameCreated: &wire.GameCreatedOut{
		GameID: string(gameID),
		Phase:  phase,
	}})
	d.issueReconnectToken(id, gameID)
}

func (d *Dispatcher) handleJoinGame(id domain.ParticipantID, in *wire.JoinGameIn) {
	if in == nil {
		d.sendError(id, wire.ErrInvalidMessage, "missing joinGame payload")
		return
	}
	gameID := domain.GameID(in.GameID)
	if err := d.manager.JoinGame(gameID, d.participantInfo(id)); err != nil {
		d.sendError(id, errorCode(err), err.Error())
		return
	}
	d.issueReconnectToken(id, gameID)
}

func (d *Dispatcher) handleLeaveGame(id domain.ParticipantID, in *wire.LeaveGameIn) {
	if in == nil {
		d.sendError(id, wire.ErrInvalidMessage, "missing leaveGame payload")
		return
	}
	gameID := domain.GameID(in.GameID)
	if err := d.manager.LeaveGame(gameID, id); err != nil {
		d.sendError(id, errorCode(err), err.Error())
	}
}

func (d *Dispatcher) handleSubmitAction(id domain.ParticipantID, in *wire.SubmitActionIn) {
	if in == nil {
		d.sendError(id, wire.ErrInvalidMessage, "missing submitAction payload")
		return
	}
	gameID := domain.GameID(in.GameID)
	action := domain.Action{
		ParticipantID: id,
		ActionType:    in.Data.ActionType,
		Payload:       in.Data.Data,
		Reasoning:     in.Data.Reasoning,
		Confidence:    in.Data.Confidence,
	}
	if err := d.manager.RouteAction(gameID, action); err != nil {
		d.sendError(id, errorCode(err), err.Error())
	}
}

func (d *Dispatcher) handleListGames(id domain.ParticipantID, in *wire.ListGamesIn) {
	filter := gamemanager.GameFilter{}
	if in != nil {
		filter.GameType = in.GameType
		filter.Phases = in.Phases
	}
	summaries := d.manager.ListGames(filter)
	out := make([]wire.GameSummaryOut, len(summaries))
	for i, s := range summaries {
		out[i] = wire.GameSummaryOut{
			GameID:           string(s.GameID),
			GameType:         s.GameType,
			Phase:            s.Phase,
			ParticipantCount: s.ParticipantCount,
		}
	}
	d.send(id, wire.Envelope{Type: wire.TypeGameList, GameList: &wire.GameListOut{Games: out}})
}

func (d *Dispatcher) participantInfo(id domain.ParticipantID) domain.ParticipantInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	ident, ok := d.idents[id]
	if !ok {
		return domain.ParticipantInfo{ID: id, Kind: domain.KindHuman, JoinedAt: d.clock.Now()}
	}
	return domain.ParticipantInfo{
		ID:          id,
		Kind:        ident.kind,
		DisplayName: ident.displayName,
		JoinedAt:    d.clock.Now(),
		Status:      domain.StatusActive,
	}
}

func (d *Dispatcher) send(id domain.ParticipantID, env wire.Envelope) {
	d.mu.Lock()
	ch, ok := d.reg.get(id)
	d.mu.Unlock()
	if !ok {
		return
	}
	_ = ch.Send(env)
}

func (d *Dispatcher) sendError(id domain.ParticipantID, code wire.ErrorCode, message string) {
	d.send(id, wire.Envelope{Type: wire.TypeError, Error: &wire.ErrorOut{Code: code, Message: message}})
}

// errorCode maps a domain sentinel error onto the wire error taxonomy.
func errorCode(err error) wire.ErrorCode {
	switch err {
	case domain.ErrGameNotFound:
		return wire.ErrGameNotFound
	case domain.ErrGameFull:
		return wire.ErrGameFull
	case domain.ErrGameStarted:
		return wire.ErrGameStarted
	case domain.ErrNotInGame, domain.ErrNotAParticipant:
		return wire.ErrNotInGame
	case domain.ErrTimeout:
		return wire.ErrTimeout
	case domain.ErrRateLimited:
		return wire.ErrRateLimited
	default:
		return wire.ErrInvalidAction
	}
}
