// Package gamemanager hosts the registry of live games: create, join,
// leave, route an action, list, and destroy. It generalizes the
// create-or-join matching the teacher exposes through a single Nakama RPC
// into a transport-agnostic API any SessionChannel implementation can call.
package gamemanager

import (
	"sort"
	"sync"

	"gamearena/internal/adjudicator"
	"gamearena/internal/broadcast"
	"gamearena/internal/clock"
	"gamearena/internal/domain"
	"gamearena/internal/replay"
	"gamearena/internal/roundsched"
)

// Manager owns every live game in the process. One process may host many
// games concurrently; each game is, in turn, owned exclusively by its own
// roundsched.Game task.
type Manager struct {
	clock    clock.Clock
	registry *adjudicator.Registry
	deliver  broadcast.Deliver
	opts     roundsched.Options
	queueDepth int

	mu    sync.RWMutex
	games map[domain.GameID]*entry
}

type entry struct {
	game *roundsched.Game
	log  *replay.Log
	bc   *broadcast.Broadcaster
}

// Config bundles the knobs Manager needs beyond the Clock/Registry/Deliver
// collaborators it is constructed with.
type Config struct {
	// QueueDepth is the per-subscriber Broadcaster queue depth for every
	// game this Manager creates.
	QueueDepth int
	// MinAliveOverride, if non-zero, overrides the Adjudicator's own
	// declared MinAlive for every game. Zero means "use the Adjudicator's
	// InitResult.MinAlive", the normal case.
	MinAliveOverride int
	RetryOnFailure   bool
}

// New builds a Manager. deliver is the transport hook each game's
// Broadcaster uses to actually push a message to one participant; it is
// supplied once and shared by every game this Manager creates.
func New(c clock.Clock, registry *adjudicator.Registry, deliver broadcast.Deliver, cfg Config) *Manager {
	queueDepth := cfg.QueueDepth
	if queueDepth <= 0 {
		queueDepth = 32
	}
	return &Manager{
		clock:    c,
		registry: registry,
		deliver:  deliver,
		queueDepth: queueDepth,
		opts:     roundsched.Options{MinAlive: cfg.MinAliveOverride, RetryOnFailure: cfg.RetryOnFailure},
		games:    make(map[domain.GameID]*entry),
	}
}

// CreateGame constructs a fresh Adjudicator for cfg.GameType, reconciles
// the caller-supplied participant bounds against what the Adjudicator
// itself declares, and starts the game's task. The caller-supplied
// GameConfig bounds are authoritative for this instance; when they fall
// outside the Adjudicator's own InitResult bounds, CreateGame fails with
// InvalidParams after Init returns, and nothing here widens or narrows
// GameConfig to match InitResult for the caller. See DESIGN.md for this reconciliation's full rationale.
func (m *Manager) CreateGame(cfg domain.GameConfig) (domain.GameID, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	adj, err := m.registry.New(cfg.GameType)
	if err != nil {
		return "", err
	}
	init, err := adj.Init(cfg.GameParams)
	if err != nil {
		return "", err
	}
	if cfg.MinParticipants < init.MinParticipants || cfg.MaxParticipants > init.MaxParticipants {
		return "", domain.ErrInvalidParams("participant bounds outside what this gameType supports")
	}

	opts := m.opts
	if opts.MinAlive == 0 {
		opts.MinAlive = init.MinAlive
	}

	log := replay.New(m.clock)
	// A subscriber dropped for falling behind (backpressure) is no longer
	// reachable; mark it disconnected the same way an explicit Leave would,
	// rather than leaving a ghost subscription in the game's Participants.
	var g *roundsched.Game
	bc := broadcast.New(m.queueDepth, m.deliver, func(id domain.ParticipantID) {
		if g != nil {
			_ = g.Leave(id)
		}
	})
	g = roundsched.New(cfg, init.GameSpecific, opts, m.clock, adj, log, bc)
	g.Run()

	m.mu.Lock()
	m.games[g.ID()] = &entry{game: g, log: log, bc: bc}
	m.mu.Unlock()

	return g.ID(), nil
}

// JoinGame adds a participant to an existing game and subscribes them to
// its Broadcaster fan-out.
func (m *Manager) JoinGame(id domain.GameID, info domain.ParticipantInfo) error {
	e, ok := m.lookup(id)
	if !ok {
		return domain.ErrGameNotFound
	}
	if err := e.game.AddParticipant(info); err != nil {
		return err
	}
	e.bc.Subscribe(info.ID)
	return nil
}

// LeaveGame removes or disconnects a participant, per the game's current
// phase, and drops their Broadcaster subscription.
func (m *Manager) LeaveGame(id domain.GameID, participant domain.ParticipantID) error {
	e, ok := m.lookup(id)
	if !ok {
		return domain.ErrGameNotFound
	}
	e.bc.Unsubscribe(participant)
	return e.game.Leave(participant)
}

// RouteAction forwards one submitted action to the game it targets.
func (m *Manager) RouteAction(id domain.GameID, action domain.Action) error {
	e, ok := m.lookup(id)
	if !ok {
		return domain.ErrGameNotFound
	}
	return e.game.SubmitAction(action)
}

// Snapshot returns the current GameState for one game.
func (m *Manager) Snapshot(id domain.GameID) (*domain.GameState, error) {
	e, ok := m.lookup(id)
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return e.game.Snapshot(), nil
}

// ReplayLog returns the entries appended to one game's log from fromIndex
// onward, for reconnecting clients that need to catch up.
func (m *Manager) ReplayLog(id domain.GameID, fromIndex int) ([]domain.ReplayEntry, error) {
	e, ok := m.lookup(id)
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return e.log.Since(fromIndex), nil
}

// GameSummary is the lightweight view ListGames returns for one live game.
// ListGames builds it from a full Snapshot of each game but returns only
// these fields, so callers never receive a game's participant roster.
type GameSummary struct {
	GameID              domain.GameID    `json:"gameId"`
	GameType            string           `json:"gameType"`
	Phase               domain.GamePhase `json:"phase"`
	ParticipantCount    int              `json:"participantCount"`
}

// GameFilter narrows ListGames; a zero-value GameFilter matches every
// live game. GameType, when non-empty, matches exactly; Phases, when
// non-empty, restricts results to any of the listed phases.
type GameFilter struct {
	GameType string
	Phases   []domain.GamePhase
}

func (f GameFilter) matches(s GameSummary) bool {
	if f.GameType != "" && f.GameType != s.GameType {
		return false
	}
	if len(f.Phases) == 0 {
		return true
	}
	for _, p := range f.Phases {
		if p == s.Phase {
			return true
		}
	}
	return false
}

// ListGames returns a summary of every live game matching filter, sorted
// by GameID for deterministic output.
func (m *Manager) ListGames(filter GameFilter) []GameSummary {
	m.mu.RLock()
	entries := make(map[domain.GameID]*entry, len(m.games))
	for id, e := range m.games {
		entries[id] = e
	}
	m.mu.RUnlock()

	summaries := make([]GameSummary, 0, len(entries))
	for id, e := range entries {
		snap := e.game.Snapshot()
		s := GameSummary{
			GameID:           id,
			GameType:         snap.Config.GameType,
			Phase:            snap.Phase,
			ParticipantCount: len(snap.Participants),
		}
		if filter.matches(s) {
			summaries = append(summaries, s)
		}
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].GameID < summaries[j].GameID })
	return summaries
}

// ReconstructGame rebuilds one game's GameState purely from its ReplayLog,
// using a freshly constructed Adjudicator of the same gameType. This is
// the replay-determinism check: the rebuilt state is expected to match
// the game's own live Snapshot exactly, without ever calling Resolve
// again.
func (m *Manager) ReconstructGame(id domain.GameID) (*domain.GameState, error) {
	e, ok := m.lookup(id)
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	entries := e.log.Since(0)
	if len(entries) == 0 || entries[0].Created == nil {
		return nil, domain.ErrGameNotFound
	}
	cfg := entries[0].Created.Config
	adj, err := m.registry.New(cfg.GameType)
	if err != nil {
		return nil, err
	}
	if _, err := adj.Init(cfg.GameParams); err != nil {
		return nil, err
	}
	return roundsched.Reconstruct(id, entries, adj)
}

// DestroyGame tears down a game's task. admin bypasses the "must already
// be ended" guard, for operator-initiated force termination.
func (m *Manager) DestroyGame(id domain.GameID, admin bool) error {
	e, ok := m.lookup(id)
	if !ok {
		return domain.ErrGameNotFound
	}
	if err := e.game.Destroy(admin); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.games, id)
	m.mu.Unlock()
	return nil
}

func (m *Manager) lookup(id domain.GameID) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.games[id]
	return e, ok
}
