// Package roundsched owns the per-game state machine described for
// RoundScheduler: one goroutine per game serializes every mutation,
// arms and fires round deadlines off an injected Clock, feeds actions to
// an Adjudicator in canonical order, and drives the corresponding
// ReplayLog append and Broadcaster notification for each transition. It
// folds in the StateStore and ActionCollector responsibilities too,
// since all three only ever run from the single owning task, the same
// way the teacher's match handler owns MatchState and dispatches on it
// from a single externally-driven loop.
package roundsched

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gamearena/internal/adjudicator"
	"gamearena/internal/broadcast"
	"gamearena/internal/clock"
	"gamearena/internal/domain"
	"gamearena/internal/replay"
	"gamearena/internal/wire"
)

// TerminalReason tags why a game reached the ended phase.
type TerminalReason string

const (
	TerminalAdjudicatorDeclared TerminalReason = "adjudicatorDeclared"
	TerminalRoundsExhausted     TerminalReason = "roundsExhausted"
	TerminalMinAliveBreached    TerminalReason = "minAliveBreached"
	TerminalAdjudicatorFailure  TerminalReason = "adjudicatorFailure"
	TerminalAdministrative      TerminalReason = "administrative"
)

// Options bundles the knobs a Game needs beyond GameConfig.
type Options struct {
	MinAlive      int
	RetryOnFailure bool
}

// Game is one running game's owning task: RoundScheduler, StateStore, and
// ActionCollector combined, all touched only from run's goroutine.
type Game struct {
	id          domain.GameID
	clock       clock.Clock
	adj         adjudicator.Adjudicator
	replayLog   *replay.Log
	broadcaster *broadcast.Broadcaster
	opts        Options

	inbox chan any
	done  chan struct{}
	stop  sync.Once

	state          *domain.GameState
	actions        map[domain.ParticipantID]domain.Action
	deadlineTimer  clock.Timer
	deadlineGen    uint64
	deadlineAt     time.Time
	resolveRetried bool
	terminalReason TerminalReason
}

// New builds a Game in awaitingParticipants, ready for Run.
func New(cfg domain.GameConfig, gameSpecific any, opts Options, c clock.Clock, adj adjudicator.Adjudicator, replayLog *replay.Log, broadcaster *broadcast.Broadcaster) *Game {
	state := domain.NewGameState(domain.NewGameID(), cfg)
	state.GameSpecific = gameSpecific

	g := &Game{
		id:          state.GameID,
		clock:       c,
		adj:         adj,
		replayLog:   replayLog,
		broadcaster: broadcaster,
		opts:        opts,
		inbox:       make(chan any, 64),
		done:        make(chan struct{}),
		state:       state,
		actions:     make(map[domain.ParticipantID]domain.Action),
	}

	now := c.Now()
	applyCreated(state, now)
	g.replayLog.Append(domain.ReplayEntry{Kind: domain.EntryCreated, Created: &domain.CreatedPayload{Config: cfg}})
	return g
}

// ID returns the game's identifier.
func (g *Game) ID() domain.GameID { return g.id }

// Run spawns the owning goroutine; call once.
func (g *Game) Run() {
	go g.loop()
}

func (g *Game) loop() {
	for {
		select {
		case <-g.done:
			return
		case cmd := <-g.inbox:
			g.dispatch(cmd)
		}
	}
}

func (g *Game) dispatch(cmd any) {
	switch c := cmd.(type) {
	case addParticipantCmd:
		c.result <- g.handleAddParticipant(c.info)
	case startGameCmd:
		c.result <- g.handleStartGame()
	case leaveCmd:
		c.result <- g.handleLeave(c.id)
	case submitActionCmd:
		c.result <- g.handleSubmitAction(c.action)
	case snapshotCmd:
		c.result <- g.state.Clone()
	case deadlineFiredCmd:
		g.handleDeadlineFired(c.gen)
	case destroyCmd:
		c.result <- g.handleDestroy(c.admin)
	default:
		panic(fmt.Sprintf("roundsched: unknown command %T", cmd))
	}
}

// --- exported, cross-task API; each blocks until the owning task has
// processed the request, giving the caller a synchronous-looking result
// over what is internally message passing. ---

func (g *Game) AddParticipant(info domain.ParticipantInfo) error {
	res := make(chan error, 1)
	g.inbox <- addParticipantCmd{info: info, result: res}
	return <-res
}

func (g *Game) StartGame() error {
	res := make(chan error, 1)
	g.inbox <- startGameCmd{result: res}
	return <-res
}

func (g *Game) Leave(id domain.ParticipantID) error {
	res := make(chan error, 1)
	g.inbox <- leaveCmd{id: id, result: res}
	return <-res
}

func (g *Game) SubmitAction(action domain.Action) error {
	res := make(chan error, 1)
	g.inbox <- submitActionCmd{action: action, result: res}
	return <-res
}

func (g *Game) Snapshot() *domain.GameState {
	res := make(chan *domain.GameState, 1)
	g.inbox <- snapshotCmd{result: res}
	return <-res
}

func (g *Game) Destroy(admin bool) error {
	res := make(chan error, 1)
	g.inbox <- destroyCmd{admin: admin, result: res}
	return <-res
}

// --- handlers, run only inside loop() ---

func (g *Game) handleAddParticipant(info domain.ParticipantInfo) error {
	if g.state.Phase != domain.PhaseAwaitingParticipants {
		return domain.ErrGameStarted
	}
	if len(g.state.Participants) >= g.state.Config.MaxParticipants {
		return domain.ErrGameFull
	}
	info.Status = domain.StatusActive
	info.JoinedAt = g.clock.Now()
	applyJoined(g.state, info)
	g.replayLog.Append(domain.ReplayEntry{Kind: domain.EntryJoined, Joined: &info})
	g.broadcastStateUpdate()

	if len(g.state.Participants) >= g.state.Config.MaxParticipants {
		_ = g.startLocked()
	}
	return nil
}

func (g *Game) handleStartGame() error {
	if g.state.Phase != domain.PhaseAwaitingParticipants {
		return domain.ErrGameStarted
	}
	return g.startLocked()
}

func (g *Game) startLocked() error {
	if len(g.state.Participants) < g.state.Config.MinParticipants {
		return domain.ErrInvalidAction("fewer than minParticipants have joined")
	}
	g.openRound(1)
	return nil
}

func (g *Game) handleLeave(id domain.ParticipantID) error {
	if _, ok := g.state.Participants[id]; !ok {
		return nil // idempotent: already gone
	}
	now := g.clock.Now()
	switch g.state.Phase {
	case domain.PhaseAwaitingParticipants:
		applyLeftDuringLobby(g.state, id, now)
	case domain.PhaseEnded:
		return nil
	default:
		applyDisconnectedDuringPlay(g.state, id, now)
		g.state.GameSpecific = g.adj.OnParticipantLeft(g.state, id)
	}
	g.replayLog.Append(domain.ReplayEntry{Kind: domain.EntryLeft, Left: &domain.LeftPayload{ParticipantID: id}})
	g.broadcastStateUpdate()
	return nil
}

func (g *Game) handleSubmitAction(action domain.Action) error {
	if g.state.Phase != domain.PhaseActionSubmission {
		return domain.ErrNotInActionPhase
	}
	if _, known := g.state.Participants[action.ParticipantID]; !known {
		return domain.ErrNotAParticipant
	}
	if !g.state.IsAlive(action.ParticipantID) {
		return domain.ErrNotAlive
	}
	if _, dup := g.actions[action.ParticipantID]; dup {
		return domain.ErrDuplicateAction
	}

	now := g.clock.Now()
	if now.After(g.deadlineAt) {
		g.rejectAction(action.ParticipantID, domain.ErrTimeout.Error())
		return domain.ErrTimeout
	}

	action.Round = g.state.CurrentRound
	action.SubmittedAt = now
	if err := g.adj.Validate(g.state, action); err != nil {
		g.rejectAction(action.ParticipantID, err.Error())
		return err
	}

	g.actions[action.ParticipantID] = action
	g.replayLog.Append(domain.ReplayEntry{Kind: domain.EntryActionAccepted, ActionAccepted: &action})

	if len(g.actions) >= len(g.state.Alive) {
		g.resolveRound()
	}
	return nil
}

func (g *Game) rejectAction(id domain.ParticipantID, reason string) {
	g.replayLog.Append(domain.ReplayEntry{
		Kind: domain.EntryActionRejected,
		ActionRejected: &domain.ActionRejectedPayload{
			ParticipantID: id,
			Round:         g.state.CurrentRound,
			Reason:        reason,
		},
	})
}

func (g *Game) handleDeadlineFired(gen uint64) {
	if gen != g.deadlineGen || g.state.Phase != domain.PhaseActionSubmission {
		return
	}
	g.resolveRound()
}

func (g *Game) handleDestroy(admin bool) error {
	if g.state.Phase != domain.PhaseEnded && !admin {
		return domain.ErrInvalidAction("game is not ended")
	}
	g.clearDeadline()
	g.stop.Do(func() { close(g.done) })
	return nil
}

// --- round lifecycle ---

func (g *Game) openRound(round int) {
	now := g.clock.Now()
	applyRoundOpened(g.state, round, now)
	g.actions = make(map[domain.ParticipantID]domain.Action, len(g.state.Alive))
	g.armDeadline()
	g.replayLog.Append(domain.ReplayEntry{
		Kind: domain.EntryRoundOpened,
		RoundOpened: &domain.RoundOpenedPayload{
			Round:    round,
			Deadline: g.deadlineAt,
		},
	})
	g.broadcastStateUpdate()
}

func (g *Game) armDeadline() {
	g.clearDeadline()
	g.deadlineGen++
	gen := g.deadlineGen
	g.deadlineAt = g.clock.Now().Add(g.state.Config.RoundDeadline)
	g.deadlineTimer = g.clock.AfterFunc(g.state.Config.RoundDeadline, func() {
		g.inbox <- deadlineFiredCmd{gen: gen}
	})
}

func (g *Game) clearDeadline() {
	if g.deadlineTimer != nil {
		g.deadlineTimer.Stop()
		g.deadlineTimer = nil
	}
}

func (g *Game) resolveRound() {
	g.clearDeadline()
	applyResolving(g.state, g.clock.Now())

	full := make([]domain.Action, 0, len(g.state.Alive))
	for id := range g.state.Alive {
		if a, ok := g.actions[id]; ok {
			full = append(full, a)
			continue
		}
		def := g.adj.DefaultAction(g.state, id)
		def.Round = g.state.CurrentRound
		if def.SubmittedAt.IsZero() {
			def.SubmittedAt = g.deadlineAt
		}
		full = append(full, def)
	}
	sort.SliceStable(full, func(i, j int) bool { return domain.CanonicalOrder(full[i], full[j]) })

	res, err := g.safeResolve(full)
	if err != nil && g.opts.RetryOnFailure && !g.resolveRetried {
		g.resolveRetried = true
		res, err = g.safeResolve(full)
	}
	if err != nil {
		g.terminate(TerminalAdjudicatorFailure)
		return
	}
	g.resolveRetried = false

	result := res.Result
	result.Round = g.state.CurrentRound
	result.ActionsByParticipant = actionsByParticipant(full)
	result.ResolvedAt = g.clock.Now()

	applyRoundResolved(g.state, result, res.NewGameSpecific)
	g.replayLog.Append(domain.ReplayEntry{
		Kind:            domain.EntryRoundResolved,
		RoundResolved:   &result,
		NewGameSpecific: res.NewGameSpecific,
	})
	g.broadcastRoundResult(result)

	switch {
	case res.Terminal:
		g.terminate(TerminalAdjudicatorDeclared)
	case len(g.state.Alive) < g.opts.MinAlive:
		g.terminate(TerminalMinAliveBreached)
	case g.state.Config.Rounds.Reached(g.state.CurrentRound):
		g.terminate(TerminalRoundsExhausted)
	default:
		g.openRound(g.state.CurrentRound + 1)
	}
}

func (g *Game) safeResolve(actions []domain.Action) (res adjudicator.ResolveResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adjudicator panic: %v", r)
		}
	}()
	return g.adj.Resolve(g.state, g.state.CurrentRound, actions)
}

func actionsByParticipant(actions []domain.Action) map[domain.ParticipantID]domain.Action {
	out := make(map[domain.ParticipantID]domain.Action, len(actions))
	for _, a := range actions {
		out[a.ParticipantID] = a
	}
	return out
}

func (g *Game) terminate(reason TerminalReason) {
	g.terminalReason = reason
	applyEnded(g.state, g.clock.Now())
	finalScores := g.state.FinalScores()
	g.replayLog.Append(domain.ReplayEntry{
		Kind: domain.EntryEnded,
		Ended: &domain.EndedPayload{
			FinalScores:    finalScores,
			TerminalReason: string(reason),
		},
	})
	g.broadcastGameEnded(finalScores, reason)
}

// --- broadcast helpers ---

func (g *Game) broadcastStateUpdate() {
	var maxRounds *int
	if !g.state.Config.Rounds.Open {
		n := g.state.Config.Rounds.Fixed
		maxRounds = &n
	}
	msg := wire.Envelope{
		Type: wire.TypeStateUpdate,
		StateUpdate: &wire.StateUpdateOut{
			GameID:          string(g.state.GameID),
			Version:         g.state.Version,
			Round:           g.state.CurrentRound,
			MaxRounds:       maxRounds,
			Phase:           g.state.Phase,
			Participants:    g.state.Participants,
			Scores:          g.state.Scores,
			Alive:           g.state.AliveIDs(),
			TimeRemainingMs: wire.MillisUntil(g.clock.Now(), g.deadlineAt),
			GameSpecific:    g.state.GameSpecific,
		},
	}
	g.broadcaster.Publish(msg)
}

func (g *Game) broadcastRoundResult(result domain.RoundResult) {
	msg := wire.Envelope{
		Type: wire.TypeRoundResult,
		RoundResult: &wire.RoundResultOut{
			GameID:       string(g.state.GameID),
			Round:        result.Round,
			Actions:      result.ActionsByParticipant,
			Outcome:      result.Outcome,
			GameSpecific: result.GameSpecificOutcome,
		},
	}
	g.broadcaster.Publish(msg)
	g.broadcastStateUpdate()
}

func (g *Game) broadcastGameEnded(finalScores map[domain.ParticipantID]int, reason TerminalReason) {
	msg := wire.Envelope{
		Type: wire.TypeGameEnded,
		GameEnded: &wire.GameEndedOut{
			GameID:         string(g.state.GameID),
			FinalScores:    finalScores,
			TerminalReason: string(reason),
		},
	}
	g.broadcaster.Publish(msg)
}
